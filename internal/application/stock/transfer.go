package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	domstock "github.com/jhoicas/stockledger/internal/domain/stock"
	"github.com/jhoicas/stockledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Transfer debita qty en fromStoreID (FIFO, con rastro MOVEMENT/originID) y acredita un único lote
// nuevo en toStoreID con el costo promedio ponderado de lo consumido. Ambas piernas van en tx.
func (s *Service) Transfer(
	ctx context.Context, tx repository.Repos,
	productID, fromStoreID, toStoreID string,
	qty decimal.Decimal, originID string, movedAt time.Time,
) (res *entity.AllocationResult, newBatchID string, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", OpTransfer,
		attribute.String("product_id", productID),
		attribute.String("from_store_id", fromStoreID),
		attribute.String("to_store_id", toStoreID),
		attribute.String("origin_id", originID),
	)
	defer telemetry.End(span, &err)

	res, newBatchID, err = s.transfer(ctx, tx, productID, fromStoreID, toStoreID, qty, originID, movedAt)
	if err != nil {
		return nil, "", s.fail(OpTransfer, err)
	}
	s.afterCommit(tx, OpTransfer, qty, pair(productID, fromStoreID), pair(productID, toStoreID))
	return res, newBatchID, nil
}

func (s *Service) transfer(
	ctx context.Context, tx repository.Repos,
	productID, fromStoreID, toStoreID string,
	qty decimal.Decimal, originID string, movedAt time.Time,
) (*entity.AllocationResult, string, error) {
	if fromStoreID == toStoreID || originID == "" {
		return nil, "", domain.ErrInvalidInput
	}
	if !qty.IsPositive() || !entity.ValidQuantityScale(qty) {
		return nil, "", domain.ErrInvalidQuantity
	}
	for _, id := range []string{fromStoreID, toStoreID} {
		store, err := tx.Stores().GetStore(ctx, id)
		if err != nil {
			return nil, "", fmt.Errorf("obtener tienda %s: %w", id, err)
		}
		if store == nil {
			return nil, "", fmt.Errorf("tienda %s: %w", id, domain.ErrNotFound)
		}
	}

	res, err := s.consume(ctx, tx, entity.ConsumerRef{Kind: entity.ConsumerMovement, ID: originID}, productID, fromStoreID, qty)
	if err != nil {
		return nil, "", err
	}

	pas, err := s.ensureProductAtStore(ctx, tx, productID, fromStoreID, toStoreID)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	inclTax := domstock.UnitCost(res.TotalCost, qty)
	exclTax := domstock.UnitCost(res.TotalCostExclTax, qty)
	batch := &entity.StockBatch{
		ID:               uuid.New().String(),
		ProductAtStoreID: pas.ID,
		ProductID:        productID,
		StoreID:          toStoreID,
		OriginalQuantity: qty,
		CurrentQuantity:  qty,
		UnitCostExclTax:  exclTax,
		TaxRate:          domstock.DeriveTaxRate(inclTax, exclTax),
		UnitCostInclTax:  inclTax,
		AcquisitionDate:  movedAt,
		OriginKind:       entity.OriginMovement,
		OriginID:         originID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.Batches().Create(ctx, batch); err != nil {
		return nil, "", fmt.Errorf("crear lote destino: %w", err)
	}

	s.log.Debug().
		Str("product_id", productID).
		Str("from_store_id", fromStoreID).
		Str("to_store_id", toStoreID).
		Str("quantity", qty.String()).
		Str("batch_id", batch.ID).
		Msg("traslado")
	return res, batch.ID, nil
}

// ensureProductAtStore resuelve la fila de precio en destino o la crea copiando el precio de origen.
func (s *Service) ensureProductAtStore(ctx context.Context, tx repository.Repos, productID, fromStoreID, toStoreID string) (*entity.ProductAtStore, error) {
	pas, err := tx.Catalog().GetProductAtStore(ctx, productID, toStoreID)
	if err != nil {
		return nil, fmt.Errorf("obtener producto en tienda destino: %w", err)
	}
	if pas != nil {
		return pas, nil
	}
	src, err := tx.Catalog().GetProductAtStore(ctx, productID, fromStoreID)
	if err != nil {
		return nil, fmt.Errorf("obtener producto en tienda origen: %w", err)
	}
	now := s.now()
	pas = &entity.ProductAtStore{
		ID:        uuid.New().String(),
		ProductID: productID,
		StoreID:   toStoreID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if src != nil {
		pas.SalePrice = src.SalePrice
	}
	if err := tx.Catalog().CreateProductAtStore(ctx, pas); err != nil {
		return nil, fmt.Errorf("crear producto en tienda destino: %w", err)
	}
	return pas, nil
}
