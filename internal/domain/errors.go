package domain

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Errores de dominio del ledger de lotes (sin dependencias de infraestructura).
var (
	ErrNotFound                       = errors.New("recurso no encontrado")
	ErrInvalidInput                   = errors.New("entrada inválida")
	ErrInvalidQuantity                = errors.New("cantidad inválida")
	ErrInsufficientStock              = errors.New("stock insuficiente")
	ErrReversalInProgress             = errors.New("el lote de destino ya fue consumido; reversión no permitida")
	ErrOverrestoration                = errors.New("la restauración supera la cantidad original del lote")
	ErrCannotReduceBelowConsumed      = errors.New("no se puede reducir por debajo de lo ya consumido")
	ErrCannotDeleteConsumedAllocation = errors.New("no se puede eliminar una asignación con consumo")
	ErrConflict                       = errors.New("conflicto de concurrencia; reintente la operación")
)

// InsufficientStockError detalla el faltante de una consumición.
type InsufficientStockError struct {
	ProductID string
	StoreID   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s en tienda %s: disponible %s, solicitado %s",
		e.ProductID, e.StoreID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// OverrestorationError detalla una restauración que excede el espacio libre de los lotes.
type OverrestorationError struct {
	ProductID string
	StoreID   string
	Headroom  decimal.Decimal
	Requested decimal.Decimal
}

func (e *OverrestorationError) Error() string {
	return fmt.Sprintf("restauración excesiva para producto %s en tienda %s: margen %s, solicitado %s",
		e.ProductID, e.StoreID, e.Headroom, e.Requested)
}

func (e *OverrestorationError) Unwrap() error { return ErrOverrestoration }

// ReduceBelowConsumedError detalla la tienda cuyo lote ya consumió más de lo pedido.
type ReduceBelowConsumedError struct {
	StoreID   string
	Consumed  decimal.Decimal
	Requested decimal.Decimal
}

func (e *ReduceBelowConsumedError) Error() string {
	return fmt.Sprintf("tienda %s: consumido %s, nueva cantidad %s", e.StoreID, e.Consumed, e.Requested)
}

func (e *ReduceBelowConsumedError) Unwrap() error { return ErrCannotReduceBelowConsumed }

// IsNotFound indica si el error refiere a un recurso inexistente.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable indica si el error puede resolverse reintentando la petición completa.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError indica si el error se debe a datos de entrada o al estado del ledger.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrReversalInProgress) ||
		errors.Is(err, ErrOverrestoration) ||
		errors.Is(err, ErrCannotReduceBelowConsumed) ||
		errors.Is(err, ErrCannotDeleteConsumedAllocation)
}

// HTTPStatus traduce un error de dominio al código HTTP que debe devolver la capa de transporte.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrReversalInProgress),
		errors.Is(err, ErrOverrestoration),
		errors.Is(err, ErrCannotReduceBelowConsumed),
		errors.Is(err, ErrCannotDeleteConsumedAllocation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
