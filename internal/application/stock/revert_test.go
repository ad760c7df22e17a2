package stock_test

import (
	"errors"
	"testing"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transfer(t *testing.T, f *fixture, qty, originID string) string {
	t.Helper()
	var batchID string
	require.NoError(t, f.run(func(tx repository.Repos) error {
		var err error
		_, batchID, err = f.svc.Transfer(f.ctx, tx, productID, storeA, storeB, dec(qty), originID, now)
		return err
	}))
	return batchID
}

func TestRevertOriginScoped_CompensaElTraslado(t *testing.T) {
	f := newFixture(t)
	b1 := f.addBatch(storeA, "3", "2", jan1)
	b2 := f.addBatch(storeA, "5", "3", jan5)
	dest := transfer(t, f, "4", "mov-1")

	require.NoError(t, f.run(func(tx repository.Repos) error {
		return f.svc.RevertOriginScoped(f.ctx, tx, productID, storeA, dec("4"), storeB, "mov-1")
	}))

	assert.True(t, f.current(b1).Equal(dec("3")))
	assert.True(t, f.current(b2).Equal(dec("5")))
	assert.True(t, f.store.Batch(b1).UnitCostInclTax.Equal(dec("2")))
	assert.True(t, f.store.Batch(dest).IsDeleted())
	assert.True(t, f.available(storeB).IsZero())
	assert.Empty(t, f.store.ActiveAllocations(entity.ConsumerMovement, "mov-1"))

	err := f.run(func(tx repository.Repos) error {
		return f.svc.RevertOriginScoped(f.ctx, tx, productID, storeA, dec("4"), storeB, "mov-1")
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "revertir dos veces no restaura de nuevo")
	assert.True(t, f.available(storeA).Equal(dec("8")))
}

func TestRevertOriginScoped_DestinoConsumido(t *testing.T) {
	f := newFixture(t)
	f.addBatch(storeA, "10", "2", jan1)
	transfer(t, f, "4", "mov-1")
	require.NoError(t, f.run(func(tx repository.Repos) error {
		_, err := f.svc.Consume(f.ctx, tx, productID, storeB, dec("1"))
		return err
	}))

	err := f.run(func(tx repository.Repos) error {
		return f.svc.RevertOriginScoped(f.ctx, tx, productID, storeA, dec("4"), storeB, "mov-1")
	})
	assert.ErrorIs(t, err, domain.ErrReversalInProgress)
	assert.True(t, f.available(storeA).Equal(dec("6")))
	assert.True(t, f.available(storeB).Equal(dec("3")))
}

func TestRevertOriginScoped_CantidadDistinta(t *testing.T) {
	f := newFixture(t)
	f.addBatch(storeA, "10", "2", jan1)
	transfer(t, f, "4", "mov-1")

	err := f.run(func(tx repository.Repos) error {
		return f.svc.RevertOriginScoped(f.ctx, tx, productID, storeA, dec("3"), storeB, "mov-1")
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.True(t, f.available(storeB).Equal(dec("4")))
}

func TestRevertOriginScoped_SinRastroRestauraGenerico(t *testing.T) {
	f := newFixture(t)
	// Traslado anterior al registro de rastros: el origen ya fue descontado y el destino existe.
	src := f.addPartial(storeA, "10", "6", "2", jan1)
	f.store.AddBatch(entity.StockBatch{
		ID:               "dest-legacy",
		ProductAtStoreID: "pas-b",
		ProductID:        productID,
		StoreID:          storeB,
		OriginalQuantity: dec("4"),
		CurrentQuantity:  dec("4"),
		UnitCostInclTax:  dec("2"),
		AcquisitionDate:  jan5,
		OriginKind:       entity.OriginMovement,
		OriginID:         "mov-legacy",
	})

	require.NoError(t, f.run(func(tx repository.Repos) error {
		return f.svc.RevertOriginScoped(f.ctx, tx, productID, storeA, dec("4"), storeB, "mov-legacy")
	}))
	assert.True(t, f.current(src).Equal(dec("10")))
	assert.True(t, f.store.Batch("dest-legacy").IsDeleted())
}

func TestRevertGeneric_RestauraDelMasReciente(t *testing.T) {
	f := newFixture(t)
	old := f.addPartial(storeA, "5", "1", "2", jan1)
	recent := f.addPartial(storeA, "5", "3", "3", jan5)

	require.NoError(t, f.run(func(tx repository.Repos) error {
		return f.svc.RevertGeneric(f.ctx, tx, productID, storeA, dec("3"))
	}))
	assert.True(t, f.current(recent).Equal(dec("5")))
	assert.True(t, f.current(old).Equal(dec("2")))
	f.requireLedgerBounds(storeA)
}

func TestRevertGeneric_Sobrerrestauracion(t *testing.T) {
	f := newFixture(t)
	b := f.addPartial(storeA, "5", "4", "2", jan1)

	err := f.run(func(tx repository.Repos) error {
		return f.svc.RevertGeneric(f.ctx, tx, productID, storeA, dec("2"))
	})
	var over *domain.OverrestorationError
	require.True(t, errors.As(err, &over))
	assert.True(t, over.Headroom.Equal(dec("1")))
	assert.True(t, f.current(b).Equal(dec("4")))
}

func TestRevertConsumer_VariosProductosInvalidaCadaPar(t *testing.T) {
	cache := newFakeCache()
	f := newFixture(t, stockWithCache(cache))
	f.addBatch(storeA, "5", "2", jan1)
	f.store.AddProduct(entity.ProductDetails{ID: "p2", Name: "Té", NameKey: "te", Kind: entity.ProductKindSimple})
	f.store.AddBatch(entity.StockBatch{
		ID: "p2-b", ProductAtStoreID: "pas-p2", ProductID: "p2", StoreID: storeA,
		OriginalQuantity: dec("3"), CurrentQuantity: dec("3"), UnitCostInclTax: dec("1"),
		AcquisitionDate: jan1, OriginKind: entity.OriginAdjustment, OriginID: "p2-b",
	})
	ref := entity.ConsumerRef{Kind: entity.ConsumerSale, ID: "V-9"}
	require.NoError(t, f.run(func(tx repository.Repos) error {
		if _, err := f.svc.ConsumeFor(f.ctx, tx, ref, productID, storeA, dec("2")); err != nil {
			return err
		}
		_, err := f.svc.ConsumeFor(f.ctx, tx, ref, "p2", storeA, dec("1"))
		return err
	}))
	cache.reset()

	require.NoError(t, f.run(func(tx repository.Repos) error {
		_, err := f.svc.RevertConsumer(f.ctx, tx, ref)
		return err
	}))
	assert.ElementsMatch(t, []string{productID + "/" + storeA, "p2/" + storeA}, cache.deleted())
	assert.True(t, f.store.Batch("p2-b").IsUntouched())
}
