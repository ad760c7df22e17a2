package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger/internal/domain/entity"
)

// StockMovementRepository persiste los traslados entre tiendas.
type StockMovementRepository interface {
	Create(ctx context.Context, m *entity.StockMovement) error
	GetForUpdate(ctx context.Context, id string) (*entity.StockMovement, error)
	Delete(ctx context.Context, id string, at time.Time) error
}

// ExpenseRepository persiste los consumos internos de stock.
type ExpenseRepository interface {
	Create(ctx context.Context, e *entity.Expense) error
	GetForUpdate(ctx context.Context, id string) (*entity.Expense, error)
	Delete(ctx context.Context, id string, at time.Time) error
}
