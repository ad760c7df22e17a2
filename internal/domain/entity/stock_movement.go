package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovement representa un traslado de stock entre dos tiendas.
// Su ID es el OriginID del lote creado en destino.
type StockMovement struct {
	ID                 string
	ProductID          string
	FromStoreID        string
	ToStoreID          string
	Quantity           decimal.Decimal
	UnitCostInclTax    decimal.Decimal // promedio ponderado de los lotes consumidos
	TotalCost          decimal.Decimal
	DestinationBatchID string
	MovedAt            time.Time
	CreatedBy          string
	CreatedAt          time.Time
	DeletedAt          *time.Time
}
