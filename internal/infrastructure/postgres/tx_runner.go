package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout > 0 limita la espera por bloqueos de fila;
// al agotarse la operación falla con domain.ErrConflict.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los hooks AfterCommit corren sólo tras un Commit exitoso.
func (r *TxRunner) Run(ctx context.Context, fn func(tx repository.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)",
			fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())); err != nil {
			return mapError("set lock_timeout", err)
		}
	}

	repos := newRepos(tx)
	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	for _, hook := range repos.hooks {
		hook(ctx)
	}
	return nil
}

// txRepos agrupa los repositorios atados a una misma pgx.Tx.
type txRepos struct {
	batches     *BatchRepo
	allocations *AllocationRepo
	catalog     *CatalogRepo
	purchases   *PurchaseRepo
	movements   *MovementRepo
	expenses    *ExpenseRepo
	hooks       []func(ctx context.Context)
}

func newRepos(tx pgx.Tx) *txRepos {
	return &txRepos{
		batches:     NewBatchRepository(tx),
		allocations: NewAllocationRepository(tx),
		catalog:     NewCatalogRepository(tx),
		purchases:   NewPurchaseRepository(tx),
		movements:   NewMovementRepository(tx),
		expenses:    NewExpenseRepository(tx),
	}
}

func (t *txRepos) Batches() repository.StockBatchRepository          { return t.batches }
func (t *txRepos) Allocations() repository.StockAllocationRepository { return t.allocations }
func (t *txRepos) Catalog() repository.ProductCatalog                { return t.catalog }
func (t *txRepos) Stores() repository.StoreDirectory                 { return t.catalog }
func (t *txRepos) Suppliers() repository.SupplierDirectory           { return t.catalog }
func (t *txRepos) Purchases() repository.PurchaseRepository          { return t.purchases }
func (t *txRepos) Movements() repository.StockMovementRepository     { return t.movements }
func (t *txRepos) Expenses() repository.ExpenseRepository            { return t.expenses }

func (t *txRepos) AfterCommit(fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, fn)
}
