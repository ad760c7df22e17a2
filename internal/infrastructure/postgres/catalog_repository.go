package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

var (
	_ repository.ProductCatalog    = (*CatalogRepo)(nil)
	_ repository.StoreDirectory    = (*CatalogRepo)(nil)
	_ repository.SupplierDirectory = (*CatalogRepo)(nil)
)

// CatalogRepo resuelve productos, filas de precio por tienda, tiendas y proveedores.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

const productColumns = `id, name, name_key, barcode, kind, parent_id, created_at, updated_at`

func (r *CatalogRepo) getProduct(ctx context.Context, op, where string, arg any) (*entity.ProductDetails, error) {
	var p entity.ProductDetails
	err := r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM product_details WHERE `+where, arg).Scan(
		&p.ID, &p.Name, &p.NameKey, &p.Barcode, &p.Kind, &p.ParentID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return &p, nil
}

func (r *CatalogRepo) GetProduct(ctx context.Context, id string) (*entity.ProductDetails, error) {
	return r.getProduct(ctx, "get product", "id = $1", id)
}

func (r *CatalogRepo) FindProductByBarcode(ctx context.Context, barcode string) (*entity.ProductDetails, error) {
	return r.getProduct(ctx, "find product by barcode", "barcode = $1", barcode)
}

// FindProductByNameKey devuelve el producto más antiguo con ese nombre normalizado.
func (r *CatalogRepo) FindProductByNameKey(ctx context.Context, nameKey string) (*entity.ProductDetails, error) {
	return r.getProduct(ctx, "find product by name", "name_key = $1 ORDER BY created_at, id LIMIT 1", nameKey)
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, p *entity.ProductDetails) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO product_details (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.NameKey, p.Barcode, p.Kind, p.ParentID, p.CreatedAt, p.UpdatedAt,
	)
	return mapError("create product", err)
}

func (r *CatalogRepo) UpdateProduct(ctx context.Context, p *entity.ProductDetails) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE product_details SET name = $2, name_key = $3, barcode = $4, kind = $5, parent_id = $6, updated_at = $7
		WHERE id = $1`,
		p.ID, p.Name, p.NameKey, p.Barcode, p.Kind, p.ParentID, p.UpdatedAt,
	)
	if err != nil {
		return mapError("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("producto %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *CatalogRepo) GetProductAtStore(ctx context.Context, productID, storeID string) (*entity.ProductAtStore, error) {
	var pas entity.ProductAtStore
	err := r.q.QueryRow(ctx, `
		SELECT id, product_id, store_id, sale_price, created_at, updated_at
		FROM product_at_store WHERE product_id = $1 AND store_id = $2`, productID, storeID).Scan(
		&pas.ID, &pas.ProductID, &pas.StoreID, &pas.SalePrice, &pas.CreatedAt, &pas.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get product at store", err)
	}
	return &pas, nil
}

func (r *CatalogRepo) CreateProductAtStore(ctx context.Context, pas *entity.ProductAtStore) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO product_at_store (id, product_id, store_id, sale_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		pas.ID, pas.ProductID, pas.StoreID, pas.SalePrice, pas.CreatedAt, pas.UpdatedAt,
	)
	return mapError("create product at store", err)
}

func (r *CatalogRepo) GetStore(ctx context.Context, id string) (*entity.Store, error) {
	var s entity.Store
	err := r.q.QueryRow(ctx, `SELECT id, name, address, created_at, updated_at FROM stores WHERE id = $1`, id).Scan(
		&s.ID, &s.Name, &s.Address, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get store", err)
	}
	return &s, nil
}

func (r *CatalogRepo) GetSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	err := r.q.QueryRow(ctx, `SELECT id, name, tax_id, created_at FROM suppliers WHERE id = $1`, id).Scan(
		&s.ID, &s.Name, &s.TaxID, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get supplier", err)
	}
	return &s, nil
}
