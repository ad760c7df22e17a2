package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de consumidor que dejan rastro de asignación.
const (
	ConsumerSale     = "SALE"
	ConsumerExpense  = "EXPENSE"
	ConsumerMovement = "MOVEMENT"
)

// ConsumerRef identifica el evento que consumió stock (venta, gasto interno o traslado).
type ConsumerRef struct {
	Kind string
	ID   string
}

// IsZero indica una consumición anónima (sin rastro persistido).
func (r ConsumerRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// AllocationLine es lo tomado de un lote concreto.
type AllocationLine struct {
	BatchID         string
	Quantity        decimal.Decimal
	UnitCostInclTax decimal.Decimal
	UnitCostExclTax decimal.Decimal
}

// AllocationResult es el resultado de una consumición FIFO: líneas en orden de consumo y costo exacto.
type AllocationResult struct {
	ProductID        string
	StoreID          string
	Quantity         decimal.Decimal
	Lines            []AllocationLine
	TotalCost        decimal.Decimal // Σ Quantity × UnitCostInclTax
	TotalCostExclTax decimal.Decimal
}

// Add acumula una línea y actualiza totales.
func (r *AllocationResult) Add(line AllocationLine) {
	r.Lines = append(r.Lines, line)
	r.Quantity = r.Quantity.Add(line.Quantity)
	r.TotalCost = r.TotalCost.Add(line.Quantity.Mul(line.UnitCostInclTax))
	r.TotalCostExclTax = r.TotalCostExclTax.Add(line.Quantity.Mul(line.UnitCostExclTax))
}

// UnitCost devuelve el costo promedio ponderado (con impuesto) de lo consumido.
func (r *AllocationResult) UnitCost() decimal.Decimal {
	if !r.Quantity.IsPositive() {
		return decimal.Zero
	}
	return r.TotalCost.Div(r.Quantity)
}

// StockAllocation es una línea de asignación persistida; permite revertir exactamente una consumición.
type StockAllocation struct {
	ID              string
	Seq             int64
	ConsumerKind    string
	ConsumerID      string
	BatchID         string
	Quantity        decimal.Decimal
	UnitCostInclTax decimal.Decimal
	UnitCostExclTax decimal.Decimal
	CreatedAt       time.Time
	RevertedAt      *time.Time
}
