package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	domstock "github.com/jhoicas/stockledger/internal/domain/stock"
	"github.com/jhoicas/stockledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Consume descuenta qty del producto en la tienda en orden FIFO y devuelve qué se tomó de cada lote.
// Si el stock no alcanza falla con *domain.InsufficientStockError sin escribir nada.
func (s *Service) Consume(ctx context.Context, tx repository.Repos, productID, storeID string, qty decimal.Decimal) (*entity.AllocationResult, error) {
	res, err := s.consume(ctx, tx, entity.ConsumerRef{}, productID, storeID, qty)
	if err != nil {
		return nil, s.fail(OpConsume, err)
	}
	s.afterCommit(tx, OpConsume, qty, pair(productID, storeID))
	return res, nil
}

// ConsumeFor es Consume más el rastro de asignación del consumidor, que permite revertir
// exactamente con RevertConsumer.
func (s *Service) ConsumeFor(ctx context.Context, tx repository.Repos, ref entity.ConsumerRef, productID, storeID string, qty decimal.Decimal) (*entity.AllocationResult, error) {
	if ref.Kind == "" || ref.ID == "" {
		return nil, s.fail(OpConsume, fmt.Errorf("consumidor sin identificar: %w", domain.ErrInvalidInput))
	}
	res, err := s.consume(ctx, tx, ref, productID, storeID, qty)
	if err != nil {
		return nil, s.fail(OpConsume, err)
	}
	s.afterCommit(tx, OpConsume, qty, pair(productID, storeID))
	return res, nil
}

func (s *Service) consume(ctx context.Context, tx repository.Repos, ref entity.ConsumerRef, productID, storeID string, qty decimal.Decimal) (res *entity.AllocationResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", OpConsume,
		attribute.String("product_id", productID),
		attribute.String("store_id", storeID),
		attribute.String("quantity", qty.String()),
	)
	defer telemetry.End(span, &err)

	if productID == "" || storeID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !qty.IsPositive() || !entity.ValidQuantityScale(qty) {
		return nil, domain.ErrInvalidQuantity
	}

	// Bloquea los lotes candidatos antes de planificar; el plan se calcula completo antes de escribir.
	batches, err := tx.Batches().ListAvailableForUpdate(ctx, productID, storeID)
	if err != nil {
		return nil, fmt.Errorf("listar lotes disponibles: %w", err)
	}
	draws, err := domstock.PlanConsume(productID, storeID, batches, qty)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res = &entity.AllocationResult{ProductID: productID, StoreID: storeID}
	for _, d := range draws {
		if err := d.Batch.Take(d.Quantity, now); err != nil {
			return nil, err
		}
		if err := tx.Batches().Update(ctx, d.Batch); err != nil {
			return nil, fmt.Errorf("actualizar lote %s: %w", d.Batch.ID, err)
		}
		line := entity.AllocationLine{
			BatchID:         d.Batch.ID,
			Quantity:        d.Quantity,
			UnitCostInclTax: d.Batch.UnitCostInclTax,
			UnitCostExclTax: d.Batch.UnitCostExclTax,
		}
		res.Add(line)

		if ref.IsZero() {
			continue
		}
		alloc := &entity.StockAllocation{
			ID:              uuid.New().String(),
			ConsumerKind:    ref.Kind,
			ConsumerID:      ref.ID,
			BatchID:         line.BatchID,
			Quantity:        line.Quantity,
			UnitCostInclTax: line.UnitCostInclTax,
			UnitCostExclTax: line.UnitCostExclTax,
			CreatedAt:       now,
		}
		if err := tx.Allocations().Create(ctx, alloc); err != nil {
			return nil, fmt.Errorf("guardar asignación: %w", err)
		}
	}

	s.log.Debug().
		Str("product_id", productID).
		Str("store_id", storeID).
		Str("quantity", qty.String()).
		Str("total_cost", res.TotalCost.String()).
		Int("batches", len(res.Lines)).
		Msg("consumo FIFO")
	return res, nil
}
