package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger/internal/domain/entity"
)

// PurchaseRepository persiste cabeceras y líneas de compra.
// Las líneas se devuelven sin Stores; el reparto por tienda se deriva de sus lotes PURCHASE.
type PurchaseRepository interface {
	CreateRecord(ctx context.Context, rec *entity.PurchaseRecord) error
	GetRecordForUpdate(ctx context.Context, id string) (*entity.PurchaseRecord, error)
	UpdateRecord(ctx context.Context, rec *entity.PurchaseRecord) error

	CreateItem(ctx context.Context, item *entity.PurchaseItem) error
	GetItemForUpdate(ctx context.Context, id string) (*entity.PurchaseItem, error)
	UpdateItem(ctx context.Context, item *entity.PurchaseItem) error
	ListItems(ctx context.Context, recordID string) ([]*entity.PurchaseItem, error)
	DeleteItem(ctx context.Context, id string, at time.Time) error
}
