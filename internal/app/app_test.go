package app_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jhoicas/stockledger/internal/app"
	"github.com/jhoicas/stockledger/internal/application/expense"
	"github.com/jhoicas/stockledger/internal/application/movement"
	"github.com/jhoicas/stockledger/internal/application/purchase"
	"github.com/jhoicas/stockledger/internal/application/sale"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stockledger/internal/infrastructure/migration"
	"github.com/jhoicas/stockledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stockledger/pkg/config"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Requiere Docker; se activa con STOCKLEDGER_INTEGRATION=1.
func newPostgresApp(t *testing.T) (*app.App, *prometheus.Registry) {
	t.Helper()
	if os.Getenv("STOCKLEDGER_INTEGRATION") == "" {
		t.Skip("STOCKLEDGER_INTEGRATION no definido")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := &config.Config{
		DB: config.DBConfig{DatabaseURL: dsn, MaxConns: 5, MinConns: 1, LockTimeout: 2 * time.Second},
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	require.NoError(t, err)

	m, err := migration.New(stdlib.OpenDBFromPool(pool), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	reg := prometheus.NewRegistry()
	a, err := app.FromPool(ctx, pool, cfg, logger.Nop(), reg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, reg
}

func seedStore(t *testing.T, a *app.App, name string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := a.Pool.Exec(context.Background(), `INSERT INTO stores (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	return id
}

func TestLedgerSobrePostgres(t *testing.T) {
	a, reg := newPostgresApp(t)
	ctx := context.Background()

	centro := seedStore(t, a, "Centro")
	norte := seedStore(t, a, "Norte")
	supplierID := uuid.New().String()
	_, err := a.Pool.Exec(ctx, `INSERT INTO suppliers (id, name) VALUES ($1, 'Distribuidora')`, supplierID)
	require.NoError(t, err)

	d1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first, err := a.Intake.Submit(ctx,
		purchase.RecordInput{SupplierID: &supplierID, Reference: "FC-1", PurchaseDate: d1},
		[]purchase.LineInput{{
			LocalID:   "a",
			Barcode:   "7700001",
			Name:      "Café Tostado",
			Quantity:  dec("10"),
			Costs:     entity.CostFields{UnitCostInclTax: dec("1000")},
			SalePrice: dec("2000"),
			Stores:    []purchase.StoreQty{{StoreID: centro, Quantity: dec("10")}},
		}},
	)
	require.NoError(t, err)
	productID := first.Items[0].ProductID

	second, err := a.Intake.Submit(ctx,
		purchase.RecordInput{SupplierID: &supplierID, Reference: "FC-2", PurchaseDate: d1.Add(24 * time.Hour)},
		[]purchase.LineInput{{
			LocalID:  "a",
			Barcode:  "7700001",
			Quantity: dec("5"),
			Costs:    entity.CostFields{UnitCostInclTax: dec("1200")},
			Stores:   []purchase.StoreQty{{StoreID: centro, Quantity: dec("5")}},
		}},
	)
	require.NoError(t, err)
	require.Equal(t, productID, second.Items[0].ProductID, "el código de barras resuelve el mismo producto")

	avail, err := a.Stock.AvailableStock(ctx, productID, centro)
	require.NoError(t, err)
	assert.True(t, avail.Equal(dec("15")), "disponible: %s", avail)

	sold, err := a.Sales.Record(ctx, sale.RecordInput{
		SaleID:  "V-1",
		StoreID: centro,
		Lines:   []sale.Line{{ProductID: productID, Quantity: dec("12")}},
	})
	require.NoError(t, err)
	assert.True(t, sold.Cost.Equal(dec("12400")), "costo: %s", sold.Cost)
	assert.True(t, sold.Revenue.Equal(dec("24000")), "ingreso: %s", sold.Revenue)

	mv, err := a.Movements.Move(ctx, movement.MoveInput{
		ProductID:   productID,
		FromStoreID: centro,
		ToStoreID:   norte,
		Quantity:    dec("2"),
	})
	require.NoError(t, err)
	assert.True(t, mv.TotalCost.Equal(dec("2400")))

	avail, err = a.Stock.AvailableStock(ctx, productID, norte)
	require.NoError(t, err)
	assert.True(t, avail.Equal(dec("2")))

	require.NoError(t, a.Movements.Delete(ctx, mv.ID))
	avail, err = a.Stock.AvailableStock(ctx, productID, norte)
	require.NoError(t, err)
	assert.True(t, avail.IsZero())

	_, err = a.Sales.Void(ctx, "V-1")
	require.NoError(t, err)
	avail, err = a.Stock.AvailableStock(ctx, productID, centro)
	require.NoError(t, err)
	assert.True(t, avail.Equal(dec("15")))

	_, err = a.Expenses.Register(ctx, expense.RegisterInput{
		ProductID: productID,
		StoreID:   centro,
		Quantity:  dec("20"),
		Reason:    "merma",
	})
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, insufficient.Available.Equal(dec("15")))

	// Nada del gasto fallido quedó escrito.
	avail, err = a.Stock.AvailableStock(ctx, productID, centro)
	require.NoError(t, err)
	assert.True(t, avail.Equal(dec("15")))

	failures, err := testutil.GatherAndCount(reg, metrics.MetricFailuresTotal)
	require.NoError(t, err)
	assert.Equal(t, 1, failures, "sólo el gasto sin stock falla")
}

func TestPostgres_CheckDeLimitesDelLote(t *testing.T) {
	a, _ := newPostgresApp(t)
	ctx := context.Background()
	store := seedStore(t, a, "Centro")

	rec, err := a.Intake.Submit(ctx, purchase.RecordInput{Reference: "FC-1"}, []purchase.LineInput{{
		LocalID:  "a",
		Name:     "Azúcar",
		Quantity: dec("4"),
		Costs:    entity.CostFields{UnitCostExclTax: dec("100"), TaxRate: dec("0.19")},
		Stores:   []purchase.StoreQty{{StoreID: store, Quantity: dec("4")}},
	}})
	require.NoError(t, err)
	item := rec.Items[0]
	assert.True(t, item.UnitCostInclTax.Equal(dec("119")))

	// El CHECK de la tabla rechaza current_quantity > original_quantity.
	_, err = a.Pool.Exec(ctx, `UPDATE stock_batches SET current_quantity = 5 WHERE id = $1`, item.Stores[0].BatchID)
	require.Error(t, err)

	_, err = a.Reconcile.Edit(ctx, item.ID, dec("2"), item.CostFields,
		[]purchase.StoreQty{{StoreID: store, Quantity: dec("2")}})
	require.NoError(t, err)
	avail, err := a.Stock.AvailableStock(ctx, item.ProductID, store)
	require.NoError(t, err)
	assert.True(t, avail.Equal(dec("2")))
}
