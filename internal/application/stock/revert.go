package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	domstock "github.com/jhoicas/stockledger/internal/domain/stock"
	"github.com/jhoicas/stockledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// RevertOriginScoped deshace un traslado: elimina el lote MOVEMENT/originID de counterpartStoreID
// (que debe estar intacto) y devuelve qty a los lotes de storeID de los que salió, según el rastro.
// Sin rastro (datos previos a su registro) restaura de forma genérica en storeID.
func (s *Service) RevertOriginScoped(
	ctx context.Context, tx repository.Repos,
	productID, storeID string, qty decimal.Decimal,
	counterpartStoreID, originID string,
) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", OpRevertOrigin,
		attribute.String("product_id", productID),
		attribute.String("store_id", storeID),
		attribute.String("counterpart_store_id", counterpartStoreID),
		attribute.String("origin_id", originID),
	)
	defer telemetry.End(span, &err)

	if err := s.revertOriginScoped(ctx, tx, productID, storeID, qty, counterpartStoreID, originID); err != nil {
		return s.fail(OpRevertOrigin, err)
	}
	s.afterCommit(tx, OpRevertOrigin, qty, pair(productID, storeID), pair(productID, counterpartStoreID))
	return nil
}

func (s *Service) revertOriginScoped(
	ctx context.Context, tx repository.Repos,
	productID, storeID string, qty decimal.Decimal,
	counterpartStoreID, originID string,
) error {
	if !qty.IsPositive() || !entity.ValidQuantityScale(qty) {
		return domain.ErrInvalidQuantity
	}
	dest, err := tx.Batches().GetByOriginForUpdate(ctx, productID, counterpartStoreID, entity.OriginMovement, originID)
	if err != nil {
		return fmt.Errorf("obtener lote destino: %w", err)
	}
	if dest == nil {
		return fmt.Errorf("lote de traslado %s: %w", originID, domain.ErrNotFound)
	}
	if !dest.IsUntouched() {
		return domain.ErrReversalInProgress
	}
	if !qty.Equal(dest.OriginalQuantity) {
		return fmt.Errorf("se revierten %s de un traslado de %s: %w", qty, dest.OriginalQuantity, domain.ErrInvalidQuantity)
	}

	now := s.now()
	if err := tx.Batches().SoftDelete(ctx, dest.ID, now); err != nil {
		return fmt.Errorf("eliminar lote destino: %w", err)
	}

	trail, err := tx.Allocations().ListActiveByConsumerForUpdate(ctx, entity.ConsumerMovement, originID)
	if err != nil {
		return fmt.Errorf("listar rastro: %w", err)
	}
	if len(trail) == 0 {
		s.log.Debug().Str("origin_id", originID).Msg("traslado sin rastro; restauración genérica")
		return s.revertGeneric(ctx, tx, productID, storeID, qty)
	}

	total := decimal.Zero
	for _, a := range trail {
		total = total.Add(a.Quantity)
	}
	if !total.Equal(qty) {
		return fmt.Errorf("rastro de %s suma %s, se pide %s: %w", originID, total, qty, domain.ErrInvalidQuantity)
	}
	expect := pair(productID, storeID)
	_, _, err = s.replay(ctx, tx, trail, &expect)
	return err
}

// RevertGeneric restaura qty en los lotes con margen del producto en la tienda, empezando por el
// consumido más recientemente. No es idempotente: se usa sólo cuando no existe rastro.
func (s *Service) RevertGeneric(ctx context.Context, tx repository.Repos, productID, storeID string, qty decimal.Decimal) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", OpRevertGeneric,
		attribute.String("product_id", productID),
		attribute.String("store_id", storeID),
		attribute.String("quantity", qty.String()),
	)
	defer telemetry.End(span, &err)

	if err := s.revertGeneric(ctx, tx, productID, storeID, qty); err != nil {
		return s.fail(OpRevertGeneric, err)
	}
	s.afterCommit(tx, OpRevertGeneric, qty, pair(productID, storeID))
	return nil
}

func (s *Service) revertGeneric(ctx context.Context, tx repository.Repos, productID, storeID string, qty decimal.Decimal) error {
	if productID == "" || storeID == "" {
		return domain.ErrInvalidInput
	}
	if !qty.IsPositive() || !entity.ValidQuantityScale(qty) {
		return domain.ErrInvalidQuantity
	}
	batches, err := tx.Batches().ListRestorableForUpdate(ctx, productID, storeID)
	if err != nil {
		return fmt.Errorf("listar lotes restaurables: %w", err)
	}
	draws, err := domstock.PlanRestore(productID, storeID, batches, qty)
	if err != nil {
		return err
	}
	now := s.now()
	for _, d := range draws {
		if err := d.Batch.Restore(d.Quantity, now); err != nil {
			return err
		}
		if err := tx.Batches().Update(ctx, d.Batch); err != nil {
			return fmt.Errorf("actualizar lote %s: %w", d.Batch.ID, err)
		}
	}
	return nil
}

// RevertConsumer reproduce a la inversa el rastro de una venta, gasto o traslado y lo marca revertido.
// Una segunda llamada no encuentra rastro activo y falla con domain.ErrNotFound.
func (s *Service) RevertConsumer(ctx context.Context, tx repository.Repos, ref entity.ConsumerRef) (res *entity.AllocationResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", OpRevertConsumer,
		attribute.String("consumer_kind", ref.Kind),
		attribute.String("consumer_id", ref.ID),
	)
	defer telemetry.End(span, &err)

	trail, err := tx.Allocations().ListActiveByConsumerForUpdate(ctx, ref.Kind, ref.ID)
	if err != nil {
		return nil, s.fail(OpRevertConsumer, fmt.Errorf("listar rastro: %w", err))
	}
	if len(trail) == 0 {
		return nil, s.fail(OpRevertConsumer, fmt.Errorf("rastro %s/%s: %w", ref.Kind, ref.ID, domain.ErrNotFound))
	}
	res, touched, err := s.replay(ctx, tx, trail, nil)
	if err != nil {
		return nil, s.fail(OpRevertConsumer, err)
	}
	s.afterCommit(tx, OpRevertConsumer, res.Quantity, touched...)
	return res, nil
}

// replay devuelve a cada lote exactamente lo que se le tomó, en orden inverso al consumo, y marca
// el rastro como revertido. Con expect exige que todos los lotes sean de ese (producto, tienda).
// Devuelve además los pares (producto, tienda) tocados.
func (s *Service) replay(ctx context.Context, tx repository.Repos, trail []*entity.StockAllocation, expect *[2]string) (*entity.AllocationResult, [][2]string, error) {
	now := s.now()
	res := &entity.AllocationResult{}
	var touched [][2]string
	seen := map[[2]string]bool{}
	ids := make([]string, 0, len(trail))
	for i := len(trail) - 1; i >= 0; i-- {
		a := trail[i]
		b, err := tx.Batches().GetForUpdate(ctx, a.BatchID)
		if err != nil {
			return nil, nil, fmt.Errorf("obtener lote %s: %w", a.BatchID, err)
		}
		if b == nil || b.IsDeleted() {
			return nil, nil, fmt.Errorf("lote %s del rastro: %w", a.BatchID, domain.ErrNotFound)
		}
		key := pair(b.ProductID, b.StoreID)
		if expect != nil && key != *expect {
			return nil, nil, fmt.Errorf("lote %s del rastro pertenece a %s/%s: %w", b.ID, b.ProductID, b.StoreID, domain.ErrInvalidInput)
		}
		if err := b.Restore(a.Quantity, now); err != nil {
			if errors.Is(err, domain.ErrOverrestoration) {
				return nil, nil, &domain.OverrestorationError{
					ProductID: b.ProductID,
					StoreID:   b.StoreID,
					Headroom:  b.Headroom(),
					Requested: a.Quantity,
				}
			}
			return nil, nil, err
		}
		if err := tx.Batches().Update(ctx, b); err != nil {
			return nil, nil, fmt.Errorf("actualizar lote %s: %w", b.ID, err)
		}
		if !seen[key] {
			seen[key] = true
			touched = append(touched, key)
		}
		if res.ProductID == "" {
			res.ProductID, res.StoreID = b.ProductID, b.StoreID
		}
		res.Add(entity.AllocationLine{
			BatchID:         b.ID,
			Quantity:        a.Quantity,
			UnitCostInclTax: a.UnitCostInclTax,
			UnitCostExclTax: a.UnitCostExclTax,
		})
		ids = append(ids, a.ID)
	}
	if err := tx.Allocations().MarkReverted(ctx, ids, now); err != nil {
		return nil, nil, fmt.Errorf("marcar rastro revertido: %w", err)
	}
	return res, touched, nil
}
