// Package cache implementa el caché de lectura del stock disponible.
package cache

import (
	"context"

	"github.com/shopspring/decimal"
)

// NoopStockCache nunca encuentra nada; se usa cuando Redis no está configurado.
type NoopStockCache struct{}

func (NoopStockCache) Get(_ context.Context, _, _ string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (NoopStockCache) Version(_ context.Context, _, _ string) (int64, error) {
	return 0, nil
}

func (NoopStockCache) Fill(_ context.Context, _, _ string, _ decimal.Decimal, _ int64) (bool, error) {
	return false, nil
}

func (NoopStockCache) Invalidate(_ context.Context, _, _ string) error {
	return nil
}
