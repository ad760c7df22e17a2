// Package purchase orquesta la recepción de compras (creación de lotes PURCHASE) y su edición
// posterior contra lo ya consumido de cada lote.
package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// StoreQty es la cantidad de una línea asignada a una tienda.
type StoreQty struct {
	StoreID  string
	Quantity decimal.Decimal
}

// sumStores suma las cantidades por tienda; falla si alguna es negativa o una tienda se repite.
func sumStores(perStore []StoreQty) (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[string]bool, len(perStore))
	for _, s := range perStore {
		if s.StoreID == "" || seen[s.StoreID] {
			return decimal.Zero, fmt.Errorf("tienda %q vacía o repetida: %w", s.StoreID, domain.ErrInvalidInput)
		}
		seen[s.StoreID] = true
		if s.Quantity.IsNegative() || !entity.ValidQuantityScale(s.Quantity) {
			return decimal.Zero, fmt.Errorf("tienda %s: %w", s.StoreID, domain.ErrInvalidQuantity)
		}
		total = total.Add(s.Quantity)
	}
	return total, nil
}

func requireStore(ctx context.Context, tx repository.Repos, storeID string) error {
	store, err := tx.Stores().GetStore(ctx, storeID)
	if err != nil {
		return fmt.Errorf("obtener tienda %s: %w", storeID, err)
	}
	if store == nil {
		return fmt.Errorf("tienda %s: %w", storeID, domain.ErrNotFound)
	}
	return nil
}

// ensureProductAtStore resuelve la fila de precio o la crea con salePrice.
func ensureProductAtStore(ctx context.Context, tx repository.Repos, productID, storeID string, salePrice decimal.Decimal, now time.Time) (*entity.ProductAtStore, error) {
	pas, err := tx.Catalog().GetProductAtStore(ctx, productID, storeID)
	if err != nil {
		return nil, fmt.Errorf("obtener producto en tienda: %w", err)
	}
	if pas != nil {
		return pas, nil
	}
	pas = &entity.ProductAtStore{
		ID:        uuid.New().String(),
		ProductID: productID,
		StoreID:   storeID,
		SalePrice: salePrice,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Catalog().CreateProductAtStore(ctx, pas); err != nil {
		return nil, fmt.Errorf("crear producto en tienda: %w", err)
	}
	return pas, nil
}

// newPurchaseBatch crea el lote intacto de una línea de compra en una tienda.
func newPurchaseBatch(ctx context.Context, tx repository.Repos, item *entity.PurchaseItem, rec *entity.PurchaseRecord, pas *entity.ProductAtStore, qty decimal.Decimal, now time.Time) (*entity.StockBatch, error) {
	b := &entity.StockBatch{
		ID:               uuid.New().String(),
		ProductAtStoreID: pas.ID,
		ProductID:        item.ProductID,
		StoreID:          pas.StoreID,
		OriginalQuantity: qty,
		CurrentQuantity:  qty,
		UnitCostExclTax:  item.UnitCostExclTax,
		TaxRate:          item.TaxRate,
		UnitCostInclTax:  item.UnitCostInclTax,
		AcquisitionDate:  rec.PurchaseDate,
		OriginKind:       entity.OriginPurchase,
		OriginID:         item.ID,
		SupplierID:       rec.SupplierID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.Batches().Create(ctx, b); err != nil {
		return nil, fmt.Errorf("crear lote: %w", err)
	}
	return b, nil
}

// recomputeTotal persiste el total de la compra como Σ de los totales de sus líneas vivas.
func recomputeTotal(ctx context.Context, tx repository.Repos, rec *entity.PurchaseRecord, now time.Time) error {
	items, err := tx.Purchases().ListItems(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("listar líneas: %w", err)
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}
	rec.Total = total
	rec.UpdatedAt = now
	if err := tx.Purchases().UpdateRecord(ctx, rec); err != nil {
		return fmt.Errorf("actualizar total de compra: %w", err)
	}
	return nil
}

// storesOf deriva el reparto por tienda de una línea a partir de sus lotes vivos.
func storesOf(batches []*entity.StockBatch) []entity.PurchaseItemStore {
	out := make([]entity.PurchaseItemStore, 0, len(batches))
	for _, b := range batches {
		if b.IsDeleted() {
			continue
		}
		out = append(out, entity.PurchaseItemStore{
			StoreID:   b.StoreID,
			Quantity:  b.OriginalQuantity,
			Remaining: b.CurrentQuantity,
			BatchID:   b.ID,
		})
	}
	return out
}
