package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger/internal/domain/entity"
)

// StockAllocationRepository persiste el rastro de asignación de cada consumición identificada.
type StockAllocationRepository interface {
	Create(ctx context.Context, alloc *entity.StockAllocation) error
	// ListActiveByConsumerForUpdate devuelve las líneas no revertidas del consumidor, en orden de Seq.
	ListActiveByConsumerForUpdate(ctx context.Context, consumerKind, consumerID string) ([]*entity.StockAllocation, error)
	MarkReverted(ctx context.Context, ids []string, at time.Time) error
}
