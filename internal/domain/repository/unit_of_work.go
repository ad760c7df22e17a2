package repository

import "context"

// Repos es el contexto transaccional: todos los repositorios atados a la misma transacción.
// Se pasa a cada operación del ledger para que sus escrituras confirmen o reviertan juntas.
type Repos interface {
	Batches() StockBatchRepository
	Allocations() StockAllocationRepository
	Catalog() ProductCatalog
	Stores() StoreDirectory
	Suppliers() SupplierDirectory
	Purchases() PurchaseRepository
	Movements() StockMovementRepository
	Expenses() ExpenseRepository
	// AfterCommit registra fn para ejecutarse sólo si la transacción confirma.
	AfterCommit(fn func(ctx context.Context))
}

// TxRunner abre una transacción, ejecuta fn con los repos atados a ella y hace Commit o Rollback.
// Si fn devuelve error nada de lo escrito persiste.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx Repos) error) error
}
