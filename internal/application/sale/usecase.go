// Package sale costea ventas contra el ledger: cada línea consume FIFO con rastro SALE y devuelve
// su costo y margen. La anulación reproduce el rastro a la inversa.
package sale

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Ledger operaciones del motor de asignación que usa la venta.
type Ledger interface {
	ConsumeFor(ctx context.Context, tx repository.Repos, ref entity.ConsumerRef, productID, storeID string, qty decimal.Decimal) (*entity.AllocationResult, error)
	RevertConsumer(ctx context.Context, tx repository.Repos, ref entity.ConsumerRef) (*entity.AllocationResult, error)
}

// Line una línea de venta. UnitPrice cero = precio de venta de la tienda.
type Line struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// RecordInput una venta identificada por el llamador.
type RecordInput struct {
	SaleID  string
	StoreID string
	Lines   []Line
}

// LineCost costo de mercancía y margen de una línea.
type LineCost struct {
	ProductID  string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Revenue    decimal.Decimal
	Cost       decimal.Decimal
	Margin     decimal.Decimal
	Allocation *entity.AllocationResult
}

// Result costo total de una venta.
type Result struct {
	SaleID  string
	Lines   []LineCost
	Revenue decimal.Decimal
	Cost    decimal.Decimal
	Margin  decimal.Decimal
}

// UseCase costea y anula ventas.
type UseCase struct {
	txRunner repository.TxRunner
	ledger   Ledger
	log      *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner repository.TxRunner, ledger Ledger, log *logger.Logger) *UseCase {
	return &UseCase{txRunner: txRunner, ledger: ledger, log: log.Named("sale")}
}

// Record costea la venta en su propia transacción.
func (uc *UseCase) Record(ctx context.Context, in RecordInput) (*Result, error) {
	var out *Result
	err := uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = uc.RecordInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordInTx consume cada línea dentro de tx. Si una línea no tiene stock la venta completa falla.
func (uc *UseCase) RecordInTx(ctx context.Context, tx repository.Repos, in RecordInput) (*Result, error) {
	if in.SaleID == "" || in.StoreID == "" || len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	ref := entity.ConsumerRef{Kind: entity.ConsumerSale, ID: in.SaleID}
	existing, err := tx.Allocations().ListActiveByConsumerForUpdate(ctx, ref.Kind, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("listar rastro: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("venta %s ya registrada: %w", in.SaleID, domain.ErrInvalidInput)
	}

	out := &Result{SaleID: in.SaleID, Revenue: decimal.Zero, Cost: decimal.Zero}
	for _, l := range in.Lines {
		if l.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("producto %s: precio negativo: %w", l.ProductID, domain.ErrInvalidInput)
		}
		price := l.UnitPrice
		if price.IsZero() {
			pas, err := tx.Catalog().GetProductAtStore(ctx, l.ProductID, in.StoreID)
			if err != nil {
				return nil, fmt.Errorf("obtener precio: %w", err)
			}
			if pas != nil {
				price = pas.SalePrice
			}
		}
		alloc, err := uc.ledger.ConsumeFor(ctx, tx, ref, l.ProductID, in.StoreID, l.Quantity)
		if err != nil {
			return nil, err
		}
		revenue := price.Mul(l.Quantity)
		lc := LineCost{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  price,
			Revenue:    revenue,
			Cost:       alloc.TotalCost,
			Margin:     revenue.Sub(alloc.TotalCost),
			Allocation: alloc,
		}
		out.Lines = append(out.Lines, lc)
		out.Revenue = out.Revenue.Add(lc.Revenue)
		out.Cost = out.Cost.Add(lc.Cost)
	}
	out.Margin = out.Revenue.Sub(out.Cost)

	uc.log.Info().
		Str("sale_id", in.SaleID).
		Str("revenue", out.Revenue.String()).
		Str("cost", out.Cost.String()).
		Msg("venta costeada")
	return out, nil
}

// Void anula la venta en su propia transacción.
func (uc *UseCase) Void(ctx context.Context, saleID string) (*entity.AllocationResult, error) {
	var out *entity.AllocationResult
	err := uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = uc.VoidInTx(ctx, tx, saleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VoidInTx devuelve a cada lote lo que la venta tomó. Una venta ya anulada falla con domain.ErrNotFound.
func (uc *UseCase) VoidInTx(ctx context.Context, tx repository.Repos, saleID string) (*entity.AllocationResult, error) {
	if saleID == "" {
		return nil, domain.ErrInvalidInput
	}
	res, err := uc.ledger.RevertConsumer(ctx, tx, entity.ConsumerRef{Kind: entity.ConsumerSale, ID: saleID})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("sale_id", saleID).Str("quantity", res.Quantity.String()).Msg("venta anulada")
	return res, nil
}
