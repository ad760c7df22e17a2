package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRecord es la cabecera de una compra a proveedor.
type PurchaseRecord struct {
	ID           string
	SupplierID   *string
	Reference    string
	PurchaseDate time.Time
	Total        decimal.Decimal // Σ Total de sus líneas
	Items        []*PurchaseItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PurchaseItem es una línea de compra; su stock vive en un lote por tienda (origen PURCHASE).
type PurchaseItem struct {
	ID               string
	PurchaseRecordID string
	ProductID        string
	LocalID          string // id asignado por el cliente al enviar la compra
	Quantity         decimal.Decimal
	CostFields
	Total     decimal.Decimal // Quantity × UnitCostInclTax
	Stores    []PurchaseItemStore
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// PurchaseItemStore es la cantidad de una línea asignada a una tienda y el lote que la respalda.
type PurchaseItemStore struct {
	StoreID   string
	Quantity  decimal.Decimal
	Remaining decimal.Decimal
	BatchID   string
}

// LineTotal calcula el total de una línea.
func LineTotal(qty decimal.Decimal, c CostFields) decimal.Decimal {
	return qty.Mul(c.UnitCostInclTax)
}
