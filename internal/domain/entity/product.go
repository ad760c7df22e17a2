package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de producto. Los compuestos y transformados enlazan a un producto padre.
const (
	ProductKindSimple      = "SIMPLE"
	ProductKindComposite   = "COMPOSITE"
	ProductKindTransformed = "TRANSFORMED"
)

// ProductDetails representa la ficha de un producto (independiente de la tienda).
type ProductDetails struct {
	ID        string
	Name      string
	NameKey   string  // nombre normalizado para búsqueda
	Barcode   *string // único cuando existe
	Kind      string
	ParentID  *string // producto del que deriva (compuesto/transformado)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductAtStore es la fila de precios de un producto en una tienda; agrupa sus lotes.
// El stock disponible no se almacena: es la suma de CurrentQuantity de sus lotes vivos.
type ProductAtStore struct {
	ID        string
	ProductID string
	StoreID   string
	SalePrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
