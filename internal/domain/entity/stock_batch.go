package entity

import (
	"time"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Origen de un lote: el evento de negocio que lo creó.
const (
	OriginPurchase   = "PURCHASE"   // línea de compra
	OriginMovement   = "MOVEMENT"   // traslado entre tiendas (pierna de crédito)
	OriginAdjustment = "ADJUSTMENT" // ajuste manual
)

// QuantityScale es el número máximo de decimales de una cantidad; coincide con las columnas NUMERIC del esquema.
const QuantityScale = 6

// ValidQuantityScale indica que q no tiene más decimales significativos que QuantityScale.
func ValidQuantityScale(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(QuantityScale))
}

// StockBatch representa un lote de stock de un producto en una tienda, con su costo y fecha de adquisición.
// Invariante: 0 <= CurrentQuantity <= OriginalQuantity.
type StockBatch struct {
	ID               string
	Seq              int64 // orden de inserción; desempata lotes con la misma fecha
	ProductAtStoreID string
	ProductID        string
	StoreID          string
	OriginalQuantity decimal.Decimal
	CurrentQuantity  decimal.Decimal
	UnitCostExclTax  decimal.Decimal
	TaxRate          decimal.Decimal // fracción: 0.19 = 19%
	UnitCostInclTax  decimal.Decimal
	AcquisitionDate  time.Time
	OriginKind       string
	OriginID         string
	SupplierID       *string
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Consumed devuelve lo que ya salió del lote.
func (b *StockBatch) Consumed() decimal.Decimal {
	return b.OriginalQuantity.Sub(b.CurrentQuantity)
}

// Headroom devuelve cuánto puede restaurarse sin superar la cantidad original.
func (b *StockBatch) Headroom() decimal.Decimal {
	return b.OriginalQuantity.Sub(b.CurrentQuantity)
}

// IsUntouched indica que el lote no ha tenido consumo (puede eliminarse).
func (b *StockBatch) IsUntouched() bool {
	return b.CurrentQuantity.Equal(b.OriginalQuantity)
}

// IsDeleted indica borrado lógico.
func (b *StockBatch) IsDeleted() bool {
	return b.DeletedAt != nil
}

// Take descuenta qty del lote. Falla si qty no es positiva o excede lo disponible.
func (b *StockBatch) Take(qty decimal.Decimal, at time.Time) error {
	if !qty.IsPositive() || qty.GreaterThan(b.CurrentQuantity) {
		return domain.ErrInvalidQuantity
	}
	b.CurrentQuantity = b.CurrentQuantity.Sub(qty)
	b.UpdatedAt = at
	return nil
}

// Restore devuelve qty al lote. Falla si el resultado supera la cantidad original.
func (b *StockBatch) Restore(qty decimal.Decimal, at time.Time) error {
	if !qty.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	if b.CurrentQuantity.Add(qty).GreaterThan(b.OriginalQuantity) {
		return domain.ErrOverrestoration
	}
	b.CurrentQuantity = b.CurrentQuantity.Add(qty)
	b.UpdatedAt = at
	return nil
}

// Resize redefine la cantidad original conservando lo ya consumido (edición de compras).
func (b *StockBatch) Resize(newOriginal decimal.Decimal, at time.Time) error {
	consumed := b.Consumed()
	if newOriginal.IsNegative() {
		return domain.ErrInvalidQuantity
	}
	if newOriginal.LessThan(consumed) {
		return domain.ErrCannotReduceBelowConsumed
	}
	b.OriginalQuantity = newOriginal
	b.CurrentQuantity = newOriginal.Sub(consumed)
	b.UpdatedAt = at
	return nil
}

// SetCosts actualiza los campos de costo del lote.
func (b *StockBatch) SetCosts(c CostFields, at time.Time) {
	b.UnitCostExclTax = c.UnitCostExclTax
	b.TaxRate = c.TaxRate
	b.UnitCostInclTax = c.UnitCostInclTax
	b.UpdatedAt = at
}

// CostFields agrupa el costo unitario de una línea o lote.
type CostFields struct {
	UnitCostExclTax decimal.Decimal
	TaxRate         decimal.Decimal
	UnitCostInclTax decimal.Decimal
}

// Normalize completa UnitCostInclTax a partir del costo sin impuesto cuando viene en cero.
func (c CostFields) Normalize() CostFields {
	if c.UnitCostInclTax.IsZero() && !c.UnitCostExclTax.IsZero() {
		c.UnitCostInclTax = c.UnitCostExclTax.Mul(decimal.NewFromInt(1).Add(c.TaxRate))
	}
	return c
}

// Valid indica que ningún campo de costo es negativo.
func (c CostFields) Valid() bool {
	return !c.UnitCostExclTax.IsNegative() && !c.TaxRate.IsNegative() && !c.UnitCostInclTax.IsNegative()
}
