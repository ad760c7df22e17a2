package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense es un consumo interno de stock (merma, uso propio), costeado por FIFO.
type Expense struct {
	ID          string
	ProductID   string
	StoreID     string
	Quantity    decimal.Decimal
	Reason      string
	TotalCost   decimal.Decimal
	ExpenseDate time.Time
	CreatedBy   string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}
