package movement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/stockledger/internal/application/movement"
	"github.com/jhoicas/stockledger/internal/application/purchase"
	"github.com/jhoicas/stockledger/internal/application/stock"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	ledger *stock.Service
	uc     *movement.UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	st.AddStore(entity.Store{ID: "s1", Name: "Centro"})
	st.AddStore(entity.Store{ID: "s2", Name: "Norte"})
	st.AddProduct(entity.ProductDetails{ID: "p1", Name: "Café", NameKey: "cafe", Kind: entity.ProductKindSimple})
	st.AddProductAtStore(entity.ProductAtStore{ID: "pas-1", ProductID: "p1", StoreID: "s1", SalePrice: dec("6")})
	for i, qty := range []string{"4", "6"} {
		id := []string{"b1", "b2"}[i]
		st.AddBatch(entity.StockBatch{
			ID: id, ProductAtStoreID: "pas-1", ProductID: "p1", StoreID: "s1",
			OriginalQuantity: dec(qty), CurrentQuantity: dec(qty),
			UnitCostExclTax: dec("2"), UnitCostInclTax: dec([]string{"2.38", "3.57"}[i]), TaxRate: dec("0.19"),
			AcquisitionDate: time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
			OriginKind:      entity.OriginAdjustment, OriginID: id,
		})
	}
	ledger := stock.NewService(st)
	return &fixture{ctx: context.Background(), store: st, ledger: ledger, uc: movement.NewUseCase(st, ledger, logger.Nop())}
}

func (f *fixture) available(t *testing.T, storeID string) decimal.Decimal {
	t.Helper()
	qty, err := f.ledger.AvailableStock(f.ctx, "p1", storeID)
	require.NoError(t, err)
	return qty
}

func TestMove_RegistraTrasladoConCosto(t *testing.T) {
	f := newFixture(t)
	movedAt := time.Date(2026, 1, 20, 15, 0, 0, 0, time.UTC)

	m, err := f.uc.Move(f.ctx, movement.MoveInput{
		ProductID: "p1", FromStoreID: "s1", ToStoreID: "s2", Quantity: dec("5"), MovedAt: movedAt, CreatedBy: "ana",
	})
	require.NoError(t, err)

	assert.True(t, m.TotalCost.Equal(dec("13.09")), m.TotalCost.String()) // 4×2.38 + 1×3.57
	assert.True(t, m.UnitCostInclTax.Equal(dec("2.618")))
	assert.True(t, f.available(t, "s1").Equal(dec("5")))
	assert.True(t, f.available(t, "s2").Equal(dec("5")))

	dest := f.store.Batch(m.DestinationBatchID)
	require.NotNil(t, dest)
	assert.Equal(t, movedAt, dest.AcquisitionDate)
	assert.True(t, dest.UnitCostExclTax.Equal(dec("2")))
	assert.True(t, dest.TaxRate.Equal(dec("0.309")), dest.TaxRate.String())
	assert.NotNil(t, f.store.Movement(m.ID))
}

func TestDelete_RevierteYBorra(t *testing.T) {
	f := newFixture(t)
	m, err := f.uc.Move(f.ctx, movement.MoveInput{ProductID: "p1", FromStoreID: "s1", ToStoreID: "s2", Quantity: dec("5")})
	require.NoError(t, err)

	require.NoError(t, f.uc.Delete(f.ctx, m.ID))
	assert.True(t, f.available(t, "s1").Equal(dec("10")))
	assert.True(t, f.available(t, "s2").IsZero())
	assert.NotNil(t, f.store.Movement(m.ID).DeletedAt)
	assert.True(t, f.store.Batch("b1").IsUntouched())
	assert.True(t, f.store.Batch("b2").IsUntouched())

	assert.ErrorIs(t, f.uc.Delete(f.ctx, m.ID), domain.ErrNotFound)
}

func TestDelete_DestinoConsumidoNoBorraNada(t *testing.T) {
	f := newFixture(t)
	m, err := f.uc.Move(f.ctx, movement.MoveInput{ProductID: "p1", FromStoreID: "s1", ToStoreID: "s2", Quantity: dec("5")})
	require.NoError(t, err)
	require.NoError(t, f.store.Run(f.ctx, func(tx repository.Repos) error {
		_, err := f.ledger.Consume(f.ctx, tx, "p1", "s2", dec("1"))
		return err
	}))

	err = f.uc.Delete(f.ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrReversalInProgress)
	assert.Nil(t, f.store.Movement(m.ID).DeletedAt)
	assert.True(t, f.available(t, "s1").Equal(dec("5")))
}

func TestMoveInTx_ComparteTransaccionConLaCompra(t *testing.T) {
	f := newFixture(t)
	intake := purchase.NewIntakeUseCase(f.store, f.ledger, logger.Nop())
	boom := errors.New("falla al final")

	err := f.store.Run(f.ctx, func(tx repository.Repos) error {
		_, err := intake.Intake(f.ctx, tx, purchase.RecordInput{Reference: "FC-9"}, []purchase.LineInput{{
			LocalID: "a", ProductID: "p1", Quantity: dec("3"),
			Costs:  entity.CostFields{UnitCostInclTax: dec("1")},
			Stores: []purchase.StoreQty{{StoreID: "s1", Quantity: dec("3")}},
		}})
		if err != nil {
			return err
		}
		if _, err := f.uc.MoveInTx(f.ctx, tx, movement.MoveInput{ProductID: "p1", FromStoreID: "s1", ToStoreID: "s2", Quantity: dec("12")}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, f.available(t, "s1").Equal(dec("10")))
	assert.True(t, f.available(t, "s2").IsZero())
	assert.Len(t, f.store.AllBatches(), 2)
}

func TestMove_Validaciones(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Move(f.ctx, movement.MoveInput{ProductID: "p1", FromStoreID: "s1", Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Move(f.ctx, movement.MoveInput{ProductID: "p1", FromStoreID: "s1", ToStoreID: "s2", Quantity: dec("11")})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Empty(t, f.store.Batches("p1", "s2"))
}
