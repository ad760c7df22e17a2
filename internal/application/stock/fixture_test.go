package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger/internal/application/stock"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	productID = "p1"
	storeA    = "s1"
	storeB    = "s2"
)

var (
	jan1 = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	jan5 = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	jan9 = time.Date(2026, 1, 9, 10, 0, 0, 0, time.UTC)
	now  = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	svc   *stock.Service
}

func newFixture(t *testing.T, opts ...stock.Option) *fixture {
	t.Helper()
	st := memory.New()
	st.AddStore(entity.Store{ID: storeA, Name: "Centro"})
	st.AddStore(entity.Store{ID: storeB, Name: "Norte"})
	st.AddProduct(entity.ProductDetails{ID: productID, Name: "Café", NameKey: "cafe", Kind: entity.ProductKindSimple})
	st.AddProductAtStore(entity.ProductAtStore{ID: "pas-a", ProductID: productID, StoreID: storeA, SalePrice: dec("5")})

	opts = append([]stock.Option{stock.WithClock(func() time.Time { return now })}, opts...)
	return &fixture{t: t, ctx: context.Background(), store: st, svc: stock.NewService(st, opts...)}
}

// addBatch registra un lote intacto con costo con impuesto cost.
func (f *fixture) addBatch(storeID, qty, cost string, acquired time.Time) string {
	return f.addPartial(storeID, qty, qty, cost, acquired)
}

func (f *fixture) addPartial(storeID, original, current, cost string, acquired time.Time) string {
	id := uuid.New().String()
	f.store.AddBatch(entity.StockBatch{
		ID:               id,
		ProductAtStoreID: "pas-a",
		ProductID:        productID,
		StoreID:          storeID,
		OriginalQuantity: dec(original),
		CurrentQuantity:  dec(current),
		UnitCostExclTax:  dec(cost),
		UnitCostInclTax:  dec(cost),
		AcquisitionDate:  acquired,
		OriginKind:       entity.OriginAdjustment,
		OriginID:         id,
	})
	return id
}

func (f *fixture) run(fn func(tx repository.Repos) error) error {
	return f.store.Run(f.ctx, fn)
}

func (f *fixture) available(storeID string) decimal.Decimal {
	f.t.Helper()
	qty, err := f.svc.AvailableStock(f.ctx, productID, storeID)
	require.NoError(f.t, err)
	return qty
}

func (f *fixture) current(batchID string) decimal.Decimal {
	f.t.Helper()
	b := f.store.Batch(batchID)
	require.NotNil(f.t, b, batchID)
	return b.CurrentQuantity
}

// requireLedgerBounds comprueba 0 <= actual <= original en todos los lotes y que availableStock
// coincide con la suma de lotes vivos.
func (f *fixture) requireLedgerBounds(storeIDs ...string) {
	f.t.Helper()
	for _, b := range f.store.AllBatches() {
		require.False(f.t, b.CurrentQuantity.IsNegative(), "lote %s negativo", b.ID)
		require.True(f.t, b.CurrentQuantity.LessThanOrEqual(b.OriginalQuantity), "lote %s sobre su original", b.ID)
	}
	for _, s := range storeIDs {
		sum := decimal.Zero
		for _, b := range f.store.Batches(productID, s) {
			sum = sum.Add(b.CurrentQuantity)
		}
		require.True(f.t, sum.Equal(f.available(s)), "tienda %s", s)
	}
}
