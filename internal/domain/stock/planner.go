// Package stock contiene la lógica pura del ledger: el plan FIFO de consumo y el plan de restauración.
// No accede a persistencia; los servicios bloquean los lotes, piden el plan y luego lo aplican.
package stock

import (
	"sort"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Draw es la cantidad a tomar (o devolver) de un lote.
type Draw struct {
	Batch    *entity.StockBatch
	Quantity decimal.Decimal
}

// SortFIFO ordena por fecha de adquisición ascendente y, a igual fecha, por orden de inserción.
func SortFIFO(batches []*entity.StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
			return a.AcquisitionDate.Before(b.AcquisitionDate)
		}
		return a.Seq < b.Seq
	})
}

// SortReverseFIFO ordena del lote más reciente al más antiguo.
func SortReverseFIFO(batches []*entity.StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
			return a.AcquisitionDate.After(b.AcquisitionDate)
		}
		return a.Seq > b.Seq
	})
}

// PlanConsume reparte qty entre los lotes en orden FIFO tomando min(restante, actual) de cada uno.
// Si el ledger se agota antes devuelve *domain.InsufficientStockError y ningún plan.
func PlanConsume(productID, storeID string, batches []*entity.StockBatch, qty decimal.Decimal) ([]Draw, error) {
	if !qty.IsPositive() || !entity.ValidQuantityScale(qty) {
		return nil, domain.ErrInvalidQuantity
	}
	candidates := make([]*entity.StockBatch, 0, len(batches))
	for _, b := range batches {
		if !b.IsDeleted() && b.CurrentQuantity.IsPositive() {
			candidates = append(candidates, b)
		}
	}
	SortFIFO(candidates)

	var draws []Draw
	remaining := qty
	for _, b := range candidates {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, b.CurrentQuantity)
		draws = append(draws, Draw{Batch: b, Quantity: take})
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		return nil, &domain.InsufficientStockError{
			ProductID: productID,
			StoreID:   storeID,
			Available: qty.Sub(remaining),
			Requested: qty,
		}
	}
	return draws, nil
}

// PlanRestore reparte qty entre los lotes con margen, empezando por el consumido más recientemente.
// Nunca lleva un lote por encima de su cantidad original: si no alcanza el margen devuelve
// *domain.OverrestorationError.
func PlanRestore(productID, storeID string, batches []*entity.StockBatch, qty decimal.Decimal) ([]Draw, error) {
	if !qty.IsPositive() || !entity.ValidQuantityScale(qty) {
		return nil, domain.ErrInvalidQuantity
	}
	candidates := make([]*entity.StockBatch, 0, len(batches))
	for _, b := range batches {
		if !b.IsDeleted() && b.Headroom().IsPositive() {
			candidates = append(candidates, b)
		}
	}
	SortReverseFIFO(candidates)

	var draws []Draw
	remaining := qty
	for _, b := range candidates {
		if !remaining.IsPositive() {
			break
		}
		give := decimal.Min(remaining, b.Headroom())
		draws = append(draws, Draw{Batch: b, Quantity: give})
		remaining = remaining.Sub(give)
	}
	if remaining.IsPositive() {
		return nil, &domain.OverrestorationError{
			ProductID: productID,
			StoreID:   storeID,
			Headroom:  qty.Sub(remaining),
			Requested: qty,
		}
	}
	return draws, nil
}
