package stock

import (
	"context"

	"github.com/shopspring/decimal"
)

// AvailabilityCache caché de lectura de availableStock por (producto, tienda).
//
// Cada par lleva una versión que Invalidate incrementa. Fill sólo escribe si la versión
// sigue siendo la leída antes de consultar el ledger; así un lector lento no puede
// reinstalar un valor anterior a una invalidación.
type AvailabilityCache interface {
	Get(ctx context.Context, productID, storeID string) (decimal.Decimal, bool, error)
	Version(ctx context.Context, productID, storeID string) (int64, error)
	Fill(ctx context.Context, productID, storeID string, qty decimal.Decimal, version int64) (bool, error)
	Invalidate(ctx context.Context, productID, storeID string) error
}

// Recorder recibe métricas de las operaciones del ledger.
type Recorder interface {
	Operation(op string, qty decimal.Decimal)
	Failure(op string, err error)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}
func (noopCache) Version(context.Context, string, string) (int64, error) { return 0, nil }
func (noopCache) Fill(context.Context, string, string, decimal.Decimal, int64) (bool, error) {
	return false, nil
}
func (noopCache) Invalidate(context.Context, string, string) error { return nil }

type noopRecorder struct{}

func (noopRecorder) Operation(string, decimal.Decimal) {}
func (noopRecorder) Failure(string, error)             {}
