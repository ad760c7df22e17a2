package metrics_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_CuentaOperacionesYFallos(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewLedger(reg)
	require.NoError(t, err)

	m.Operation("consume", decimal.NewFromInt(12))
	m.Operation("consume", decimal.NewFromInt(3))
	m.Failure("transfer", fmt.Errorf("wrap: %w", &domain.InsufficientStockError{}))

	count, err := testutil.GatherAndCount(reg, metrics.MetricOperationsTotal)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP stockledger_quantity_total Unidades consumidas, trasladadas o restauradas, por tipo de operación.
# TYPE stockledger_quantity_total counter
stockledger_quantity_total{op="consume"} 15
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), metrics.MetricQuantityTotal))

	expected = `
# HELP stockledger_failures_total Operaciones fallidas por tipo y motivo.
# TYPE stockledger_failures_total counter
stockledger_failures_total{op="transfer",reason="insufficient_stock"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), metrics.MetricFailuresTotal))
}

func TestLedger_RegistroDuplicadoFalla(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewLedger(reg)
	require.NoError(t, err)
	_, err = metrics.NewLedger(reg)
	assert.Error(t, err)
}

func TestLedger_NilEsNoop(t *testing.T) {
	var m *metrics.Ledger
	assert.NotPanics(t, func() {
		m.Operation("consume", decimal.NewFromInt(1))
		m.Failure("consume", domain.ErrConflict)
	})
}

func TestReason(t *testing.T) {
	cases := map[error]string{
		domain.ErrInvalidQuantity:          "invalid_quantity",
		&domain.OverrestorationError{}:     "overrestoration",
		domain.ErrReversalInProgress:       "reversal_in_progress",
		&domain.ReduceBelowConsumedError{}: "reduce_below_consumed",
		domain.ErrConflict:                 "conflict",
		fmt.Errorf("otro"):                 "internal",
	}
	for err, want := range cases {
		assert.Equal(t, want, metrics.Reason(err), err.Error())
	}
}
