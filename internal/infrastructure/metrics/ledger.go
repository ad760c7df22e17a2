// Package metrics publica métricas Prometheus del ledger de lotes.
package metrics

import (
	"errors"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Nombres de métricas.
const (
	MetricOperationsTotal = "stockledger_operations_total"
	MetricQuantityTotal   = "stockledger_quantity_total"
	MetricFailuresTotal   = "stockledger_failures_total"
)

// Ledger cuenta operaciones, unidades movidas y fallos por motivo.
// Un *Ledger nil es válido y no registra nada.
type Ledger struct {
	operations *prometheus.CounterVec
	quantity   *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewLedger crea y registra las métricas en reg.
func NewLedger(reg prometheus.Registerer) (*Ledger, error) {
	m := &Ledger{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricOperationsTotal,
			Help: "Operaciones del ledger confirmadas dentro del servicio, por tipo.",
		}, []string{"op"}),
		quantity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricQuantityTotal,
			Help: "Unidades consumidas, trasladadas o restauradas, por tipo de operación.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFailuresTotal,
			Help: "Operaciones fallidas por tipo y motivo.",
		}, []string{"op", "reason"}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.quantity, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Operation registra una operación exitosa y su cantidad.
func (m *Ledger) Operation(op string, qty decimal.Decimal) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op).Inc()
	m.quantity.WithLabelValues(op).Add(qty.InexactFloat64())
}

// Failure registra un fallo clasificado por su error de dominio.
func (m *Ledger) Failure(op string, err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(op, Reason(err)).Inc()
}

// Reason traduce un error al valor de la etiqueta reason.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrReversalInProgress):
		return "reversal_in_progress"
	case errors.Is(err, domain.ErrOverrestoration):
		return "overrestoration"
	case errors.Is(err, domain.ErrCannotReduceBelowConsumed):
		return "reduce_below_consumed"
	case errors.Is(err, domain.ErrCannotDeleteConsumedAllocation):
		return "delete_consumed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
