package domain_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStructuredErrorsUnwrap(t *testing.T) {
	var err error = &domain.InsufficientStockError{
		ProductID: "p1", StoreID: "s1",
		Available: decimal.NewFromInt(2), Requested: decimal.NewFromInt(5),
	}
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "disponible 2")

	err = fmt.Errorf("consumir: %w", &domain.OverrestorationError{ProductID: "p1", StoreID: "s1"})
	assert.ErrorIs(t, err, domain.ErrOverrestoration)

	err = &domain.ReduceBelowConsumedError{StoreID: "s1", Consumed: decimal.NewFromInt(3), Requested: decimal.NewFromInt(1)}
	assert.ErrorIs(t, err, domain.ErrCannotReduceBelowConsumed)
}

func TestClassification(t *testing.T) {
	assert.True(t, domain.IsNotFound(fmt.Errorf("lote: %w", domain.ErrNotFound)))
	assert.True(t, domain.IsRetryable(domain.ErrConflict))
	assert.False(t, domain.IsRetryable(domain.ErrInvalidInput))
	assert.True(t, domain.IsClientError(domain.ErrReversalInProgress))
	assert.False(t, domain.IsClientError(errors.New("driver")))
	assert.False(t, domain.IsClientError(domain.ErrConflict))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{&domain.InsufficientStockError{}, http.StatusConflict},
		{domain.ErrCannotDeleteConsumedAllocation, http.StatusConflict},
		{domain.ErrConflict, http.StatusConflict},
		{errors.New("otro"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.HTTPStatus(tt.err), fmt.Sprint(tt.err))
	}
}
