package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	domstock "github.com/jhoicas/stockledger/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// txRepos son los repositorios atados a la copia de trabajo de una transacción.
type txRepos struct {
	st    *state
	hooks []func(ctx context.Context)
}

func (t *txRepos) Batches() repository.StockBatchRepository          { return batchRepo{t.st} }
func (t *txRepos) Allocations() repository.StockAllocationRepository { return allocationRepo{t.st} }
func (t *txRepos) Catalog() repository.ProductCatalog                { return catalogRepo{t.st} }
func (t *txRepos) Stores() repository.StoreDirectory                 { return directory{t.st} }
func (t *txRepos) Suppliers() repository.SupplierDirectory           { return directory{t.st} }
func (t *txRepos) Purchases() repository.PurchaseRepository          { return purchaseRepo{t.st} }
func (t *txRepos) Movements() repository.StockMovementRepository     { return movementRepo{t.st} }
func (t *txRepos) Expenses() repository.ExpenseRepository            { return expenseRepo{t.st} }

func (t *txRepos) AfterCommit(fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, fn)
}

// ── Lotes ────────────────────────────────────────────────────────────────────

type batchRepo struct{ st *state }

func (r batchRepo) Create(_ context.Context, b *entity.StockBatch) error {
	if _, ok := r.st.batches[b.ID]; ok {
		return fmt.Errorf("lote %s duplicado: %w", b.ID, domain.ErrInvalidInput)
	}
	if b.CurrentQuantity.IsNegative() || b.CurrentQuantity.GreaterThan(b.OriginalQuantity) {
		return domain.ErrInvalidQuantity
	}
	b.Seq = r.st.nextSeq()
	r.st.batches[b.ID] = *b
	return nil
}

func (r batchRepo) GetByID(_ context.Context, id string) (*entity.StockBatch, error) {
	b, ok := r.st.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r batchRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockBatch, error) {
	return r.GetByID(ctx, id)
}

func (r batchRepo) filter(keep func(b entity.StockBatch) bool) []*entity.StockBatch {
	var out []*entity.StockBatch
	for _, b := range r.st.batches {
		if b.DeletedAt == nil && keep(b) {
			b := b
			out = append(out, &b)
		}
	}
	return out
}

func (r batchRepo) ListAvailableForUpdate(_ context.Context, productID, storeID string) ([]*entity.StockBatch, error) {
	out := r.filter(func(b entity.StockBatch) bool {
		return b.ProductID == productID && b.StoreID == storeID && b.CurrentQuantity.IsPositive()
	})
	domstock.SortFIFO(out)
	return out, nil
}

func (r batchRepo) ListRestorableForUpdate(_ context.Context, productID, storeID string) ([]*entity.StockBatch, error) {
	out := r.filter(func(b entity.StockBatch) bool {
		return b.ProductID == productID && b.StoreID == storeID && b.CurrentQuantity.LessThan(b.OriginalQuantity)
	})
	domstock.SortReverseFIFO(out)
	return out, nil
}

func (r batchRepo) GetByOriginForUpdate(_ context.Context, productID, storeID, originKind, originID string) (*entity.StockBatch, error) {
	out := r.filter(func(b entity.StockBatch) bool {
		return b.ProductID == productID && b.StoreID == storeID && b.OriginKind == originKind && b.OriginID == originID
	})
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r batchRepo) ListByOriginForUpdate(_ context.Context, originKind, originID string) ([]*entity.StockBatch, error) {
	out := r.filter(func(b entity.StockBatch) bool {
		return b.OriginKind == originKind && b.OriginID == originID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r batchRepo) Update(_ context.Context, b *entity.StockBatch) error {
	cur, ok := r.st.batches[b.ID]
	if !ok || cur.DeletedAt != nil {
		return fmt.Errorf("lote %s: %w", b.ID, domain.ErrNotFound)
	}
	if b.CurrentQuantity.IsNegative() || b.CurrentQuantity.GreaterThan(b.OriginalQuantity) {
		return domain.ErrInvalidQuantity
	}
	r.st.batches[b.ID] = *b
	return nil
}

func (r batchRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	b, ok := r.st.batches[id]
	if !ok || b.DeletedAt != nil {
		return fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
	}
	b.DeletedAt = &at
	b.UpdatedAt = at
	r.st.batches[id] = b
	return nil
}

func (r batchRepo) AvailableStock(_ context.Context, productID, storeID string) (decimal.Decimal, error) {
	return r.st.availableStock(productID, storeID), nil
}

// ── Rastro de asignación ─────────────────────────────────────────────────────

type allocationRepo struct{ st *state }

func (r allocationRepo) Create(_ context.Context, a *entity.StockAllocation) error {
	a.Seq = r.st.nextSeq()
	r.st.allocations[a.ID] = *a
	return nil
}

func (r allocationRepo) ListActiveByConsumerForUpdate(_ context.Context, kind, id string) ([]*entity.StockAllocation, error) {
	return activeAllocations(r.st, kind, id), nil
}

func (r allocationRepo) MarkReverted(_ context.Context, ids []string, at time.Time) error {
	for _, id := range ids {
		a, ok := r.st.allocations[id]
		if !ok {
			return fmt.Errorf("asignación %s: %w", id, domain.ErrNotFound)
		}
		a.RevertedAt = &at
		r.st.allocations[id] = a
	}
	return nil
}

// ── Catálogo y directorios ───────────────────────────────────────────────────

type catalogRepo struct{ st *state }

func (r catalogRepo) GetProduct(_ context.Context, id string) (*entity.ProductDetails, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r catalogRepo) FindProductByBarcode(_ context.Context, barcode string) (*entity.ProductDetails, error) {
	for _, p := range r.st.products {
		if p.Barcode != nil && *p.Barcode == barcode {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r catalogRepo) FindProductByNameKey(_ context.Context, nameKey string) (*entity.ProductDetails, error) {
	var found *entity.ProductDetails
	for _, p := range r.st.products {
		if p.NameKey != nameKey {
			continue
		}
		// Con nombres repetidos gana el más antiguo, como ORDER BY created_at.
		if found == nil || p.CreatedAt.Before(found.CreatedAt) {
			p := p
			found = &p
		}
	}
	return found, nil
}

func (r catalogRepo) CreateProduct(_ context.Context, p *entity.ProductDetails) error {
	if p.Barcode != nil {
		if dup, _ := r.FindProductByBarcode(context.Background(), *p.Barcode); dup != nil {
			return fmt.Errorf("código de barras %s duplicado: %w", *p.Barcode, domain.ErrInvalidInput)
		}
	}
	r.st.products[p.ID] = *p
	return nil
}

func (r catalogRepo) UpdateProduct(_ context.Context, p *entity.ProductDetails) error {
	if _, ok := r.st.products[p.ID]; !ok {
		return fmt.Errorf("producto %s: %w", p.ID, domain.ErrNotFound)
	}
	r.st.products[p.ID] = *p
	return nil
}

func (r catalogRepo) GetProductAtStore(_ context.Context, productID, storeID string) (*entity.ProductAtStore, error) {
	return findPAS(r.st, productID, storeID), nil
}

func (r catalogRepo) CreateProductAtStore(_ context.Context, pas *entity.ProductAtStore) error {
	if findPAS(r.st, pas.ProductID, pas.StoreID) != nil {
		return fmt.Errorf("producto %s ya existe en tienda %s: %w", pas.ProductID, pas.StoreID, domain.ErrInvalidInput)
	}
	r.st.pas[pas.ID] = *pas
	return nil
}

type directory struct{ st *state }

func (d directory) GetStore(_ context.Context, id string) (*entity.Store, error) {
	s, ok := d.st.stores[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (d directory) GetSupplier(_ context.Context, id string) (*entity.Supplier, error) {
	s, ok := d.st.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// ── Compras ──────────────────────────────────────────────────────────────────

type purchaseRepo struct{ st *state }

func (r purchaseRepo) CreateRecord(_ context.Context, rec *entity.PurchaseRecord) error {
	c := *rec
	c.Items = nil
	r.st.records[rec.ID] = c
	return nil
}

func (r purchaseRepo) GetRecordForUpdate(_ context.Context, id string) (*entity.PurchaseRecord, error) {
	rec, ok := r.st.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r purchaseRepo) UpdateRecord(_ context.Context, rec *entity.PurchaseRecord) error {
	if _, ok := r.st.records[rec.ID]; !ok {
		return fmt.Errorf("compra %s: %w", rec.ID, domain.ErrNotFound)
	}
	c := *rec
	c.Items = nil
	r.st.records[rec.ID] = c
	return nil
}

func (r purchaseRepo) CreateItem(_ context.Context, it *entity.PurchaseItem) error {
	if _, ok := r.st.records[it.PurchaseRecordID]; !ok {
		return fmt.Errorf("compra %s: %w", it.PurchaseRecordID, domain.ErrNotFound)
	}
	c := *it
	c.Stores = nil
	r.st.items[it.ID] = c
	return nil
}

func (r purchaseRepo) GetItemForUpdate(_ context.Context, id string) (*entity.PurchaseItem, error) {
	it, ok := r.st.items[id]
	if !ok || it.DeletedAt != nil {
		return nil, nil
	}
	return &it, nil
}

func (r purchaseRepo) UpdateItem(_ context.Context, it *entity.PurchaseItem) error {
	cur, ok := r.st.items[it.ID]
	if !ok || cur.DeletedAt != nil {
		return fmt.Errorf("línea de compra %s: %w", it.ID, domain.ErrNotFound)
	}
	c := *it
	c.Stores = nil
	r.st.items[it.ID] = c
	return nil
}

func (r purchaseRepo) ListItems(_ context.Context, recordID string) ([]*entity.PurchaseItem, error) {
	var out []*entity.PurchaseItem
	for _, it := range r.st.items {
		if it.PurchaseRecordID == recordID && it.DeletedAt == nil {
			it := it
			out = append(out, &it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r purchaseRepo) DeleteItem(_ context.Context, id string, at time.Time) error {
	it, ok := r.st.items[id]
	if !ok || it.DeletedAt != nil {
		return fmt.Errorf("línea de compra %s: %w", id, domain.ErrNotFound)
	}
	it.DeletedAt = &at
	r.st.items[id] = it
	return nil
}

// ── Traslados y gastos ───────────────────────────────────────────────────────

type movementRepo struct{ st *state }

func (r movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	r.st.movements[m.ID] = *m
	return nil
}

func (r movementRepo) GetForUpdate(_ context.Context, id string) (*entity.StockMovement, error) {
	m, ok := r.st.movements[id]
	if !ok || m.DeletedAt != nil {
		return nil, nil
	}
	return &m, nil
}

func (r movementRepo) Delete(_ context.Context, id string, at time.Time) error {
	m, ok := r.st.movements[id]
	if !ok || m.DeletedAt != nil {
		return fmt.Errorf("traslado %s: %w", id, domain.ErrNotFound)
	}
	m.DeletedAt = &at
	r.st.movements[id] = m
	return nil
}

type expenseRepo struct{ st *state }

func (r expenseRepo) Create(_ context.Context, e *entity.Expense) error {
	r.st.expenses[e.ID] = *e
	return nil
}

func (r expenseRepo) GetForUpdate(_ context.Context, id string) (*entity.Expense, error) {
	e, ok := r.st.expenses[id]
	if !ok || e.DeletedAt != nil {
		return nil, nil
	}
	return &e, nil
}

func (r expenseRepo) Delete(_ context.Context, id string, at time.Time) error {
	e, ok := r.st.expenses[id]
	if !ok || e.DeletedAt != nil {
		return fmt.Errorf("gasto %s: %w", id, domain.ErrNotFound)
	}
	e.DeletedAt = &at
	r.st.expenses[id] = e
	return nil
}
