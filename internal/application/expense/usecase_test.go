package expense_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/stockledger/internal/application/expense"
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

var jan1 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*memory.Store, *stock.Service, *expense.UseCase) {
	t.Helper()
	st := memory.New()
	st.AddStore(entity.Store{ID: "s1", Name: "Centro"})
	for i, b := range []struct{ id, original, current, cost string }{
		{"b1", "3", "3", "2"},
		{"b2", "5", "5", "3"},
	} {
		st.AddBatch(entity.StockBatch{
			ID: b.id, ProductID: "p1", StoreID: "s1",
			OriginalQuantity: dec(b.original), CurrentQuantity: dec(b.current),
			UnitCostInclTax: dec(b.cost), AcquisitionDate: jan1.AddDate(0, 0, i),
			OriginKind: entity.OriginAdjustment, OriginID: b.id,
		})
	}
	ledger := stock.NewService(st)
	return st, ledger, expense.NewUseCase(st, ledger, logger.Nop())
}

func TestRegister_CosteaFIFOYGuardaRastro(t *testing.T) {
	st, _, uc := setup(t)

	e, err := uc.Register(context.Background(), expense.RegisterInput{
		ProductID: "p1", StoreID: "s1", Quantity: dec("4"), Reason: " merma ",
	})
	require.NoError(t, err)
	assert.True(t, e.TotalCost.Equal(dec("9")))
	assert.Equal(t, "merma", e.Reason)
	assert.False(t, e.ExpenseDate.IsZero())
	assert.Len(t, st.ActiveAllocations(entity.ConsumerExpense, e.ID), 2)
	assert.NotNil(t, st.Expense(e.ID))
}

func TestRegister_Validaciones(t *testing.T) {
	_, _, uc := setup(t)
	ctx := context.Background()

	_, err := uc.Register(ctx, expense.RegisterInput{ProductID: "p1", StoreID: "s1", Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "motivo obligatorio")

	_, err = uc.Register(ctx, expense.RegisterInput{ProductID: "p1", StoreID: "s-x", Quantity: dec("1"), Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Register(ctx, expense.RegisterInput{ProductID: "p1", StoreID: "s1", Quantity: dec("9"), Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestDelete_ReproduceElRastro(t *testing.T) {
	st, ledger, uc := setup(t)
	ctx := context.Background()
	e, err := uc.Register(ctx, expense.RegisterInput{ProductID: "p1", StoreID: "s1", Quantity: dec("4"), Reason: "merma"})
	require.NoError(t, err)

	require.NoError(t, uc.Delete(ctx, e.ID))
	qty, err := ledger.AvailableStock(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.True(t, qty.Equal(dec("8")))
	assert.True(t, st.Batch("b1").IsUntouched())
	assert.NotNil(t, st.Expense(e.ID).DeletedAt)

	assert.ErrorIs(t, uc.Delete(ctx, e.ID), domain.ErrNotFound)
}

func TestDelete_GastoSinRastroRestauraGenerico(t *testing.T) {
	st, _, uc := setup(t)
	ctx := context.Background()
	// Gasto registrado antes de existir el rastro: el lote más reciente ya fue descontado.
	require.NoError(t, st.Run(ctx, func(tx repository.Repos) error {
		b, err := tx.Batches().GetForUpdate(ctx, "b2")
		require.NoError(t, err)
		require.NoError(t, b.Take(dec("2"), jan1))
		if err := tx.Batches().Update(ctx, b); err != nil {
			return err
		}
		return tx.Expenses().Create(ctx, &entity.Expense{
			ID: "legacy", ProductID: "p1", StoreID: "s1", Quantity: dec("2"), Reason: "vencido", ExpenseDate: jan1,
		})
	}))

	require.NoError(t, uc.Delete(ctx, "legacy"))
	assert.True(t, st.Batch("b2").IsUntouched())
}
