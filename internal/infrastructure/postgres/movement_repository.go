package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

var (
	_ repository.StockMovementRepository = (*MovementRepo)(nil)
	_ repository.ExpenseRepository       = (*ExpenseRepo)(nil)
)

// MovementRepo persiste traslados entre tiendas.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

func (r *MovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (
			id, product_id, from_store_id, to_store_id, quantity, unit_cost_incl_tax, total_cost,
			destination_batch_id, moved_at, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.ProductID, m.FromStoreID, m.ToStoreID, m.Quantity, m.UnitCostInclTax, m.TotalCost,
		nullIfEmpty(m.DestinationBatchID), m.MovedAt, m.CreatedBy, m.CreatedAt,
	)
	return mapError("create stock movement", err)
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockMovement, error) {
	var m entity.StockMovement
	err := r.q.QueryRow(ctx, `
		SELECT id, product_id, from_store_id, to_store_id, quantity, unit_cost_incl_tax, total_cost,
		       COALESCE(destination_batch_id::text, ''), moved_at, created_by, created_at, deleted_at
		FROM stock_movements WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id).Scan(
		&m.ID, &m.ProductID, &m.FromStoreID, &m.ToStoreID, &m.Quantity, &m.UnitCostInclTax, &m.TotalCost,
		&m.DestinationBatchID, &m.MovedAt, &m.CreatedBy, &m.CreatedAt, &m.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get stock movement", err)
	}
	return &m, nil
}

func (r *MovementRepo) Delete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE stock_movements SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return mapError("delete stock movement", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("traslado %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ExpenseRepo persiste gastos internos.
type ExpenseRepo struct {
	q Querier
}

// NewExpenseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewExpenseRepository(q Querier) *ExpenseRepo {
	return &ExpenseRepo{q: q}
}

func (r *ExpenseRepo) Create(ctx context.Context, e *entity.Expense) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO expenses (id, product_id, store_id, quantity, reason, total_cost, expense_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.ProductID, e.StoreID, e.Quantity, e.Reason, e.TotalCost, e.ExpenseDate, e.CreatedBy, e.CreatedAt,
	)
	return mapError("create expense", err)
}

func (r *ExpenseRepo) GetForUpdate(ctx context.Context, id string) (*entity.Expense, error) {
	var e entity.Expense
	err := r.q.QueryRow(ctx, `
		SELECT id, product_id, store_id, quantity, reason, total_cost, expense_date, created_by, created_at, deleted_at
		FROM expenses WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id).Scan(
		&e.ID, &e.ProductID, &e.StoreID, &e.Quantity, &e.Reason, &e.TotalCost, &e.ExpenseDate,
		&e.CreatedBy, &e.CreatedAt, &e.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get expense", err)
	}
	return &e, nil
}

func (r *ExpenseRepo) Delete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE expenses SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return mapError("delete expense", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("gasto %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
