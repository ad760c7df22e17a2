package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// ReconcileUseCase aplica ediciones de líneas de compra sobre sus lotes sin tocar lo ya consumido.
type ReconcileUseCase struct {
	txRunner repository.TxRunner
	notifier StockNotifier
	log      *logger.Logger
	now      func() time.Time
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(txRunner repository.TxRunner, notifier StockNotifier, log *logger.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{
		txRunner: txRunner,
		notifier: notifier,
		log:      log.Named("purchase"),
		now:      time.Now,
	}
}

// Edit aplica Reconcile en su propia transacción.
func (uc *ReconcileUseCase) Edit(ctx context.Context, itemID string, newQty decimal.Decimal, costs entity.CostFields, perStore []StoreQty) (*entity.PurchaseItem, error) {
	var out *entity.PurchaseItem
	err := uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = uc.Reconcile(ctx, tx, itemID, newQty, costs, perStore)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem aplica DeleteItem en su propia transacción.
func (uc *ReconcileUseCase) RemoveItem(ctx context.Context, itemID string) (*entity.PurchaseRecord, error) {
	var out *entity.PurchaseRecord
	err := uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = uc.DeleteItem(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reconcile redefine la cantidad, el costo y el reparto por tienda de una línea de compra.
// Por tienda: original = nueva cantidad y actual = nueva − consumido; falla si la nueva cantidad
// queda por debajo de lo consumido. Una tienda ausente o con cantidad 0 se elimina sólo si su lote
// está intacto. Las tiendas nuevas reciben un lote nuevo. El total de la compra se recalcula.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, tx repository.Repos, itemID string, newQty decimal.Decimal, costs entity.CostFields, perStore []StoreQty) (*entity.PurchaseItem, error) {
	if newQty.IsNegative() {
		return nil, domain.ErrInvalidQuantity
	}
	sum, err := sumStores(perStore)
	if err != nil {
		return nil, err
	}
	if !sum.Equal(newQty) {
		return nil, fmt.Errorf("tiendas suman %s, cantidad %s: %w", sum, newQty, domain.ErrInvalidQuantity)
	}
	if !costs.Valid() {
		return nil, fmt.Errorf("costo negativo: %w", domain.ErrInvalidInput)
	}
	costs = costs.Normalize()

	item, err := tx.Purchases().GetItemForUpdate(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("obtener línea de compra: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("línea de compra %s: %w", itemID, domain.ErrNotFound)
	}
	rec, err := tx.Purchases().GetRecordForUpdate(ctx, item.PurchaseRecordID)
	if err != nil {
		return nil, fmt.Errorf("obtener compra: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("compra %s: %w", item.PurchaseRecordID, domain.ErrNotFound)
	}
	batches, err := tx.Batches().ListByOriginForUpdate(ctx, entity.OriginPurchase, item.ID)
	if err != nil {
		return nil, fmt.Errorf("listar lotes de la línea: %w", err)
	}
	byStore := make(map[string]*entity.StockBatch, len(batches))
	for _, b := range batches {
		byStore[b.StoreID] = b
	}

	now := uc.now()
	item.Quantity = newQty
	item.CostFields = costs
	item.Total = entity.LineTotal(newQty, costs)
	item.UpdatedAt = now

	kept := make(map[string]bool, len(perStore))
	for _, s := range perStore {
		if s.Quantity.IsZero() {
			continue
		}
		kept[s.StoreID] = true
		b, ok := byStore[s.StoreID]
		if !ok {
			if err := requireStore(ctx, tx, s.StoreID); err != nil {
				return nil, err
			}
			pas, err := ensureProductAtStore(ctx, tx, item.ProductID, s.StoreID, decimal.Zero, now)
			if err != nil {
				return nil, err
			}
			if _, err := newPurchaseBatch(ctx, tx, item, rec, pas, s.Quantity, now); err != nil {
				return nil, err
			}
			uc.notifier.InvalidateOnCommit(tx, item.ProductID, s.StoreID)
			continue
		}

		if err := b.Resize(s.Quantity, now); err != nil {
			if errors.Is(err, domain.ErrCannotReduceBelowConsumed) {
				return nil, &domain.ReduceBelowConsumedError{StoreID: s.StoreID, Consumed: b.Consumed(), Requested: s.Quantity}
			}
			return nil, err
		}
		b.SetCosts(costs, now)
		if err := tx.Batches().Update(ctx, b); err != nil {
			return nil, fmt.Errorf("actualizar lote %s: %w", b.ID, err)
		}
		uc.notifier.InvalidateOnCommit(tx, item.ProductID, s.StoreID)
	}

	for storeID, b := range byStore {
		if kept[storeID] {
			continue
		}
		if !b.IsUntouched() {
			return nil, fmt.Errorf("tienda %s: %w", storeID, domain.ErrCannotDeleteConsumedAllocation)
		}
		if err := tx.Batches().SoftDelete(ctx, b.ID, now); err != nil {
			return nil, fmt.Errorf("eliminar lote %s: %w", b.ID, err)
		}
		uc.notifier.InvalidateOnCommit(tx, item.ProductID, storeID)
	}

	if err := tx.Purchases().UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("actualizar línea de compra: %w", err)
	}
	if err := recomputeTotal(ctx, tx, rec, now); err != nil {
		return nil, err
	}

	current, err := tx.Batches().ListByOriginForUpdate(ctx, entity.OriginPurchase, item.ID)
	if err != nil {
		return nil, fmt.Errorf("listar lotes de la línea: %w", err)
	}
	item.Stores = storesOf(current)

	uc.log.Debug().
		Str("purchase_item_id", item.ID).
		Str("quantity", newQty.String()).
		Str("record_total", rec.Total.String()).
		Msg("línea de compra reconciliada")
	return item, nil
}

// DeleteItem elimina una línea cuyos lotes siguen intactos y recalcula el total de la compra.
func (uc *ReconcileUseCase) DeleteItem(ctx context.Context, tx repository.Repos, itemID string) (*entity.PurchaseRecord, error) {
	item, err := tx.Purchases().GetItemForUpdate(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("obtener línea de compra: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("línea de compra %s: %w", itemID, domain.ErrNotFound)
	}
	rec, err := tx.Purchases().GetRecordForUpdate(ctx, item.PurchaseRecordID)
	if err != nil {
		return nil, fmt.Errorf("obtener compra: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("compra %s: %w", item.PurchaseRecordID, domain.ErrNotFound)
	}
	batches, err := tx.Batches().ListByOriginForUpdate(ctx, entity.OriginPurchase, item.ID)
	if err != nil {
		return nil, fmt.Errorf("listar lotes de la línea: %w", err)
	}
	for _, b := range batches {
		if !b.IsUntouched() {
			return nil, fmt.Errorf("tienda %s: %w", b.StoreID, domain.ErrCannotDeleteConsumedAllocation)
		}
	}

	now := uc.now()
	for _, b := range batches {
		if err := tx.Batches().SoftDelete(ctx, b.ID, now); err != nil {
			return nil, fmt.Errorf("eliminar lote %s: %w", b.ID, err)
		}
		uc.notifier.InvalidateOnCommit(tx, item.ProductID, b.StoreID)
	}
	if err := tx.Purchases().DeleteItem(ctx, item.ID, now); err != nil {
		return nil, fmt.Errorf("eliminar línea de compra: %w", err)
	}
	if err := recomputeTotal(ctx, tx, rec, now); err != nil {
		return nil, err
	}

	uc.log.Debug().Str("purchase_item_id", item.ID).Str("record_total", rec.Total.String()).Msg("línea de compra eliminada")
	return rec, nil
}
