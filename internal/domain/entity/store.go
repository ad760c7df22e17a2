package entity

import "time"

// Store representa una tienda o sucursal que mantiene stock propio.
type Store struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Supplier representa un proveedor de compras.
type Supplier struct {
	ID        string
	Name      string
	TaxID     string
	CreatedAt time.Time
}
