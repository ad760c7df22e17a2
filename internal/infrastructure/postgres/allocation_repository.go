package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

var _ repository.StockAllocationRepository = (*AllocationRepo)(nil)

// AllocationRepo persiste el rastro de asignación.
type AllocationRepo struct {
	q Querier
}

// NewAllocationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAllocationRepository(q Querier) *AllocationRepo {
	return &AllocationRepo{q: q}
}

func (r *AllocationRepo) Create(ctx context.Context, a *entity.StockAllocation) error {
	query := `
		INSERT INTO stock_allocations (
			id, consumer_kind, consumer_id, batch_id, quantity,
			unit_cost_incl_tax, unit_cost_excl_tax, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		a.ID, a.ConsumerKind, a.ConsumerID, a.BatchID, a.Quantity,
		a.UnitCostInclTax, a.UnitCostExclTax, a.CreatedAt,
	).Scan(&a.Seq)
	return mapError("create stock allocation", err)
}

func (r *AllocationRepo) ListActiveByConsumerForUpdate(ctx context.Context, kind, id string) ([]*entity.StockAllocation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, seq, consumer_kind, consumer_id, batch_id, quantity,
		       unit_cost_incl_tax, unit_cost_excl_tax, created_at, reverted_at
		FROM stock_allocations
		WHERE consumer_kind = $1 AND consumer_id = $2 AND reverted_at IS NULL
		ORDER BY seq
		FOR UPDATE`, kind, id)
	if err != nil {
		return nil, mapError("list stock allocations", err)
	}
	defer rows.Close()
	var list []*entity.StockAllocation
	for rows.Next() {
		var a entity.StockAllocation
		if err := rows.Scan(
			&a.ID, &a.Seq, &a.ConsumerKind, &a.ConsumerID, &a.BatchID, &a.Quantity,
			&a.UnitCostInclTax, &a.UnitCostExclTax, &a.CreatedAt, &a.RevertedAt,
		); err != nil {
			return nil, mapError("scan stock allocation", err)
		}
		list = append(list, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list stock allocations", err)
	}
	return list, nil
}

func (r *AllocationRepo) MarkReverted(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`UPDATE stock_allocations SET reverted_at = $2 WHERE id = ANY($1::uuid[]) AND reverted_at IS NULL`, ids, at)
	return mapError("mark allocations reverted", err)
}
