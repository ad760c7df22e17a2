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

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

// PurchaseRepo persiste compras y sus líneas.
type PurchaseRepo struct {
	q Querier
}

// NewPurchaseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseRepository(q Querier) *PurchaseRepo {
	return &PurchaseRepo{q: q}
}

func (r *PurchaseRepo) CreateRecord(ctx context.Context, rec *entity.PurchaseRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_records (id, supplier_id, reference, purchase_date, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.SupplierID, rec.Reference, rec.PurchaseDate, rec.Total, rec.CreatedAt, rec.UpdatedAt,
	)
	return mapError("create purchase record", err)
}

func (r *PurchaseRepo) GetRecordForUpdate(ctx context.Context, id string) (*entity.PurchaseRecord, error) {
	var rec entity.PurchaseRecord
	err := r.q.QueryRow(ctx, `
		SELECT id, supplier_id, reference, purchase_date, total, created_at, updated_at
		FROM purchase_records WHERE id = $1 FOR UPDATE`, id).Scan(
		&rec.ID, &rec.SupplierID, &rec.Reference, &rec.PurchaseDate, &rec.Total, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get purchase record", err)
	}
	return &rec, nil
}

func (r *PurchaseRepo) UpdateRecord(ctx context.Context, rec *entity.PurchaseRecord) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE purchase_records SET supplier_id = $2, reference = $3, purchase_date = $4, total = $5, updated_at = $6
		WHERE id = $1`,
		rec.ID, rec.SupplierID, rec.Reference, rec.PurchaseDate, rec.Total, rec.UpdatedAt,
	)
	if err != nil {
		return mapError("update purchase record", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("compra %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

const itemColumns = `id, purchase_record_id, product_id, local_id, quantity,
	unit_cost_excl_tax, tax_rate, unit_cost_incl_tax, total, created_at, updated_at, deleted_at`

func scanItem(row pgx.Row) (*entity.PurchaseItem, error) {
	var it entity.PurchaseItem
	err := row.Scan(
		&it.ID, &it.PurchaseRecordID, &it.ProductID, &it.LocalID, &it.Quantity,
		&it.UnitCostExclTax, &it.TaxRate, &it.UnitCostInclTax, &it.Total,
		&it.CreatedAt, &it.UpdatedAt, &it.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PurchaseRepo) CreateItem(ctx context.Context, it *entity.PurchaseItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		it.ID, it.PurchaseRecordID, it.ProductID, it.LocalID, it.Quantity,
		it.UnitCostExclTax, it.TaxRate, it.UnitCostInclTax, it.Total,
		it.CreatedAt, it.UpdatedAt, it.DeletedAt,
	)
	return mapError("create purchase item", err)
}

func (r *PurchaseRepo) GetItemForUpdate(ctx context.Context, id string) (*entity.PurchaseItem, error) {
	it, err := scanItem(r.q.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM purchase_items WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get purchase item", err)
	}
	return it, nil
}

func (r *PurchaseRepo) UpdateItem(ctx context.Context, it *entity.PurchaseItem) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE purchase_items SET quantity = $2, unit_cost_excl_tax = $3, tax_rate = $4,
			unit_cost_incl_tax = $5, total = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL`,
		it.ID, it.Quantity, it.UnitCostExclTax, it.TaxRate, it.UnitCostInclTax, it.Total, it.UpdatedAt,
	)
	if err != nil {
		return mapError("update purchase item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("línea de compra %s: %w", it.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PurchaseRepo) ListItems(ctx context.Context, recordID string) ([]*entity.PurchaseItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+itemColumns+` FROM purchase_items
		WHERE purchase_record_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id`, recordID)
	if err != nil {
		return nil, mapError("list purchase items", err)
	}
	defer rows.Close()
	var list []*entity.PurchaseItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, mapError("scan purchase item", err)
		}
		list = append(list, it)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list purchase items", err)
	}
	return list, nil
}

func (r *PurchaseRepo) DeleteItem(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE purchase_items SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return mapError("delete purchase item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("línea de compra %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
