// Package app arma los servicios del ledger sobre PostgreSQL a partir de la configuración.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/stockledger/internal/application/expense"
	"github.com/jhoicas/stockledger/internal/application/movement"
	"github.com/jhoicas/stockledger/internal/application/purchase"
	"github.com/jhoicas/stockledger/internal/application/sale"
	"github.com/jhoicas/stockledger/internal/application/stock"
	"github.com/jhoicas/stockledger/internal/infrastructure/cache"
	"github.com/jhoicas/stockledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stockledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stockledger/pkg/config"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// App contiene los casos de uso listos para usar y los recursos a liberar.
type App struct {
	Pool      *pgxpool.Pool
	TxRunner  *postgres.TxRunner
	Stock     *stock.Service
	Intake    *purchase.IntakeUseCase
	Reconcile *purchase.ReconcileUseCase
	Movements *movement.UseCase
	Expenses  *expense.UseCase
	Sales     *sale.UseCase
	Metrics   *metrics.Ledger

	redis *cache.RedisStockCache
	log   *logger.Logger
}

// New abre el pool y construye los servicios. Con reg nil se usa prometheus.DefaultRegisterer.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	a, err := FromPool(ctx, pool, cfg, log, reg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

// FromPool construye los servicios sobre un pool existente; Close también lo cierra.
func FromPool(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) (*App, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ledgerMetrics, err := metrics.NewLedger(reg)
	if err != nil {
		return nil, fmt.Errorf("registrar métricas: %w", err)
	}

	a := &App{Pool: pool, Metrics: ledgerMetrics, log: log}
	opts := []stock.Option{stock.WithLogger(log), stock.WithRecorder(ledgerMetrics)}
	if cfg.Redis.Enabled() {
		rc := cache.NewRedisStockCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Cache.StockTTL)
		if err := rc.Ping(ctx); err != nil {
			// Sin Redis el ledger sigue funcionando contra PostgreSQL.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible; caché deshabilitado")
			_ = rc.Close()
		} else {
			a.redis = rc
			opts = append(opts, stock.WithCache(rc))
		}
	}

	a.TxRunner = postgres.NewTxRunner(pool, cfg.DB.LockTimeout)
	a.Stock = stock.NewService(postgres.NewBatchRepository(pool), opts...)
	a.Intake = purchase.NewIntakeUseCase(a.TxRunner, a.Stock, log)
	a.Reconcile = purchase.NewReconcileUseCase(a.TxRunner, a.Stock, log)
	a.Movements = movement.NewUseCase(a.TxRunner, a.Stock, log)
	a.Expenses = expense.NewUseCase(a.TxRunner, a.Stock, log)
	a.Sales = sale.NewUseCase(a.TxRunner, a.Stock, log)

	log.Info().Bool("cache", a.redis != nil).Dur("lock_timeout", cfg.DB.LockTimeout).Msg("ledger listo")
	return a, nil
}

// Close libera Redis y el pool.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("cerrar redis")
		}
	}
	a.Pool.Close()
}
