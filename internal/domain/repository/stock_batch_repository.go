package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockBatchRepository define el puerto del ledger de lotes.
// Los métodos *ForUpdate bloquean las filas leídas (SELECT ... FOR UPDATE) hasta el fin de la tx.
// Los lotes con DeletedAt nunca se devuelven salvo en GetByID.
// Si no existe el lote se devuelve nil, nil.
type StockBatchRepository interface {
	// Create inserta el lote y asigna su Seq.
	Create(ctx context.Context, batch *entity.StockBatch) error
	GetByID(ctx context.Context, id string) (*entity.StockBatch, error)
	GetForUpdate(ctx context.Context, id string) (*entity.StockBatch, error)
	// ListAvailableForUpdate devuelve los lotes con CurrentQuantity > 0 en orden FIFO
	// (AcquisitionDate ascendente, luego Seq).
	ListAvailableForUpdate(ctx context.Context, productID, storeID string) ([]*entity.StockBatch, error)
	// ListRestorableForUpdate devuelve los lotes con margen (Current < Original) en orden FIFO inverso.
	ListRestorableForUpdate(ctx context.Context, productID, storeID string) ([]*entity.StockBatch, error)
	GetByOriginForUpdate(ctx context.Context, productID, storeID, originKind, originID string) (*entity.StockBatch, error)
	// ListByOriginForUpdate devuelve todos los lotes de un origen (una línea de compra tiene uno por tienda).
	ListByOriginForUpdate(ctx context.Context, originKind, originID string) ([]*entity.StockBatch, error)
	Update(ctx context.Context, batch *entity.StockBatch) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	StockReader
}

// StockReader es la lectura agregada del ledger; no requiere transacción.
type StockReader interface {
	// AvailableStock devuelve Σ CurrentQuantity de los lotes vivos del producto en la tienda.
	AvailableStock(ctx context.Context, productID, storeID string) (decimal.Decimal, error)
}
