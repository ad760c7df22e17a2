package sale_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/stockledger/internal/application/sale"
	"github.com/jhoicas/stockledger/internal/application/stock"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*memory.Store, *sale.UseCase) {
	t.Helper()
	st := memory.New()
	st.AddStore(entity.Store{ID: "s1", Name: "Centro"})
	st.AddProductAtStore(entity.ProductAtStore{ID: "pas-1", ProductID: "p1", StoreID: "s1", SalePrice: dec("4")})
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	add := func(id, product, qty, cost string, offset int) {
		st.AddBatch(entity.StockBatch{
			ID: id, ProductID: product, StoreID: "s1",
			OriginalQuantity: dec(qty), CurrentQuantity: dec(qty), UnitCostInclTax: dec(cost),
			AcquisitionDate: day.AddDate(0, 0, offset), OriginKind: entity.OriginAdjustment, OriginID: id,
		})
	}
	add("b1", "p1", "10", "2.00", 0)
	add("b2", "p1", "5", "3.00", 4)
	add("c1", "p2", "2", "7.00", 0)
	ledger := stock.NewService(st)
	return st, sale.NewUseCase(st, ledger, logger.Nop())
}

func TestRecord_CosteaYCalculaMargen(t *testing.T) {
	_, uc := setup(t)

	res, err := uc.Record(context.Background(), sale.RecordInput{
		SaleID:  "V-1",
		StoreID: "s1",
		Lines: []sale.Line{
			{ProductID: "p1", Quantity: dec("12")},
			{ProductID: "p2", Quantity: dec("1"), UnitPrice: dec("10")},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.True(t, res.Lines[0].UnitPrice.Equal(dec("4")), "precio de la tienda")
	assert.True(t, res.Lines[0].Cost.Equal(dec("26")))
	assert.True(t, res.Lines[0].Margin.Equal(dec("22")))
	assert.True(t, res.Revenue.Equal(dec("58")))
	assert.True(t, res.Cost.Equal(dec("33")))
	assert.True(t, res.Margin.Equal(dec("25")))
}

func TestRecord_LineaSinStockFallaTodaLaVenta(t *testing.T) {
	st, uc := setup(t)

	_, err := uc.Record(context.Background(), sale.RecordInput{
		SaleID:  "V-1",
		StoreID: "s1",
		Lines: []sale.Line{
			{ProductID: "p1", Quantity: dec("3")},
			{ProductID: "p2", Quantity: dec("5")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, st.Batch("b1").IsUntouched())
	assert.Empty(t, st.ActiveAllocations(entity.ConsumerSale, "V-1"))
}

func TestRecord_DuplicadaYPrecioNegativo(t *testing.T) {
	_, uc := setup(t)
	ctx := context.Background()
	in := sale.RecordInput{SaleID: "V-1", StoreID: "s1", Lines: []sale.Line{{ProductID: "p1", Quantity: dec("1")}}}

	_, err := uc.Record(ctx, in)
	require.NoError(t, err)
	_, err = uc.Record(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Record(ctx, sale.RecordInput{SaleID: "V-2", StoreID: "s1", Lines: []sale.Line{{ProductID: "p1", Quantity: dec("1"), UnitPrice: dec("-1")}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVoid_DevuelveCadaUnidadASuLote(t *testing.T) {
	st, uc := setup(t)
	ctx := context.Background()
	_, err := uc.Record(ctx, sale.RecordInput{SaleID: "V-1", StoreID: "s1", Lines: []sale.Line{
		{ProductID: "p1", Quantity: dec("12")},
		{ProductID: "p2", Quantity: dec("2")},
	}})
	require.NoError(t, err)

	res, err := uc.Void(ctx, "V-1")
	require.NoError(t, err)
	assert.True(t, res.Quantity.Equal(dec("14")))
	assert.True(t, res.TotalCost.Equal(dec("40")))
	for _, id := range []string{"b1", "b2", "c1"} {
		assert.True(t, st.Batch(id).IsUntouched(), id)
	}

	_, err = uc.Void(ctx, "V-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Una venta anulada puede volver a registrarse con el mismo id.
	_, err = uc.Record(ctx, sale.RecordInput{SaleID: "V-1", StoreID: "s1", Lines: []sale.Line{{ProductID: "p1", Quantity: dec("1")}}})
	assert.NoError(t, err)
}
