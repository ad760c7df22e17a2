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
	"github.com/shopspring/decimal"
)

var _ repository.StockBatchRepository = (*BatchRepo)(nil)

const batchColumns = `
	b.id, b.seq, b.product_at_store_id, b.product_id, b.store_id,
	b.original_quantity, b.current_quantity,
	b.unit_cost_excl_tax, b.tax_rate, b.unit_cost_incl_tax,
	b.acquisition_date, b.origin_kind, b.origin_id, b.supplier_id,
	b.deleted_at, b.created_at, b.updated_at`

// BatchRepo implementación del ledger de lotes sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

func scanBatch(row pgx.Row) (*entity.StockBatch, error) {
	var b entity.StockBatch
	err := row.Scan(
		&b.ID, &b.Seq, &b.ProductAtStoreID, &b.ProductID, &b.StoreID,
		&b.OriginalQuantity, &b.CurrentQuantity,
		&b.UnitCostExclTax, &b.TaxRate, &b.UnitCostInclTax,
		&b.AcquisitionDate, &b.OriginKind, &b.OriginID, &b.SupplierID,
		&b.DeletedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BatchRepo) queryOne(ctx context.Context, op, query string, args ...any) (*entity.StockBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return b, nil
}

func (r *BatchRepo) queryMany(ctx context.Context, op, query string, args ...any) ([]*entity.StockBatch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []*entity.StockBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

// Create inserta el lote; seq lo asigna la secuencia.
func (r *BatchRepo) Create(ctx context.Context, b *entity.StockBatch) error {
	query := `
		INSERT INTO stock_batches (
			id, product_at_store_id, product_id, store_id,
			original_quantity, current_quantity,
			unit_cost_excl_tax, tax_rate, unit_cost_incl_tax,
			acquisition_date, origin_kind, origin_id, supplier_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		b.ID, b.ProductAtStoreID, b.ProductID, b.StoreID,
		b.OriginalQuantity, b.CurrentQuantity,
		b.UnitCostExclTax, b.TaxRate, b.UnitCostInclTax,
		b.AcquisitionDate, b.OriginKind, b.OriginID, b.SupplierID,
		b.CreatedAt, b.UpdatedAt,
	).Scan(&b.Seq)
	return mapError("create stock batch", err)
}

// GetByID obtiene un lote, incluido si está eliminado.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.StockBatch, error) {
	return r.queryOne(ctx, "get stock batch",
		`SELECT `+batchColumns+` FROM stock_batches b WHERE b.id = $1`, id)
}

// GetForUpdate obtiene el lote y bloquea la fila (SELECT FOR UPDATE).
func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockBatch, error) {
	return r.queryOne(ctx, "get stock batch for update",
		`SELECT `+batchColumns+` FROM stock_batches b WHERE b.id = $1 FOR UPDATE OF b`, id)
}

// ListAvailableForUpdate bloquea y devuelve los lotes con existencias en orden FIFO.
func (r *BatchRepo) ListAvailableForUpdate(ctx context.Context, productID, storeID string) ([]*entity.StockBatch, error) {
	return r.queryMany(ctx, "list available batches", `
		SELECT `+batchColumns+`
		FROM stock_batches b
		WHERE b.product_id = $1 AND b.store_id = $2
		  AND b.deleted_at IS NULL AND b.current_quantity > 0
		ORDER BY b.acquisition_date ASC, b.seq ASC
		FOR UPDATE OF b`, productID, storeID)
}

// ListRestorableForUpdate bloquea y devuelve los lotes con margen, del más reciente al más antiguo.
func (r *BatchRepo) ListRestorableForUpdate(ctx context.Context, productID, storeID string) ([]*entity.StockBatch, error) {
	return r.queryMany(ctx, "list restorable batches", `
		SELECT `+batchColumns+`
		FROM stock_batches b
		WHERE b.product_id = $1 AND b.store_id = $2
		  AND b.deleted_at IS NULL AND b.current_quantity < b.original_quantity
		ORDER BY b.acquisition_date DESC, b.seq DESC
		FOR UPDATE OF b`, productID, storeID)
}

// GetByOriginForUpdate bloquea el lote vivo creado por (originKind, originID) en la tienda.
func (r *BatchRepo) GetByOriginForUpdate(ctx context.Context, productID, storeID, originKind, originID string) (*entity.StockBatch, error) {
	return r.queryOne(ctx, "get batch by origin", `
		SELECT `+batchColumns+`
		FROM stock_batches b
		WHERE b.product_id = $1 AND b.store_id = $2
		  AND b.origin_kind = $3 AND b.origin_id = $4
		  AND b.deleted_at IS NULL
		ORDER BY b.seq
		LIMIT 1
		FOR UPDATE OF b`, productID, storeID, originKind, originID)
}

// ListByOriginForUpdate bloquea los lotes vivos de un origen en todas las tiendas.
func (r *BatchRepo) ListByOriginForUpdate(ctx context.Context, originKind, originID string) ([]*entity.StockBatch, error) {
	return r.queryMany(ctx, "list batches by origin", `
		SELECT `+batchColumns+`
		FROM stock_batches b
		WHERE b.origin_kind = $1 AND b.origin_id = $2 AND b.deleted_at IS NULL
		ORDER BY b.seq
		FOR UPDATE OF b`, originKind, originID)
}

// Update persiste cantidades y costos. La restricción CHECK del esquema rechaza cantidades fuera de rango.
func (r *BatchRepo) Update(ctx context.Context, b *entity.StockBatch) error {
	query := `
		UPDATE stock_batches SET
			original_quantity = $2, current_quantity = $3,
			unit_cost_excl_tax = $4, tax_rate = $5, unit_cost_incl_tax = $6,
			updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query, b.ID,
		b.OriginalQuantity, b.CurrentQuantity,
		b.UnitCostExclTax, b.TaxRate, b.UnitCostInclTax,
		b.UpdatedAt,
	)
	if err != nil {
		return mapError("update stock batch", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lote %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}

// SoftDelete marca el lote como eliminado.
func (r *BatchRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE stock_batches SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return mapError("delete stock batch", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AvailableStock suma las existencias de los lotes vivos.
func (r *BatchRepo) AvailableStock(ctx context.Context, productID, storeID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(current_quantity), 0)
		FROM stock_batches
		WHERE product_id = $1 AND store_id = $2 AND deleted_at IS NULL`, productID, storeID).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError("available stock", err)
	}
	return total, nil
}
