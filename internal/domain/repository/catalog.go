package repository

import (
	"context"

	"github.com/jhoicas/stockledger/internal/domain/entity"
)

// ProductCatalog resuelve y crea fichas de producto y sus filas de precio por tienda.
// Las búsquedas sin resultado devuelven nil, nil.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (*entity.ProductDetails, error)
	FindProductByBarcode(ctx context.Context, barcode string) (*entity.ProductDetails, error)
	FindProductByNameKey(ctx context.Context, nameKey string) (*entity.ProductDetails, error)
	CreateProduct(ctx context.Context, p *entity.ProductDetails) error
	UpdateProduct(ctx context.Context, p *entity.ProductDetails) error

	GetProductAtStore(ctx context.Context, productID, storeID string) (*entity.ProductAtStore, error)
	CreateProductAtStore(ctx context.Context, pas *entity.ProductAtStore) error
}

// StoreDirectory resuelve tiendas por id.
type StoreDirectory interface {
	GetStore(ctx context.Context, id string) (*entity.Store, error)
}

// SupplierDirectory resuelve proveedores por id.
type SupplierDirectory interface {
	GetSupplier(ctx context.Context, id string) (*entity.Supplier, error)
}
