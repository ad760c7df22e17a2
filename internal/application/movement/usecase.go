// Package movement registra y elimina traslados de stock entre tiendas. El registro del traslado y
// sus piernas en el ledger confirman o revierten juntos.
package movement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Ledger operaciones del motor de asignación que usa el traslado.
type Ledger interface {
	Transfer(ctx context.Context, tx repository.Repos, productID, fromStoreID, toStoreID string, qty decimal.Decimal, originID string, movedAt time.Time) (*entity.AllocationResult, string, error)
	RevertOriginScoped(ctx context.Context, tx repository.Repos, productID, storeID string, qty decimal.Decimal, counterpartStoreID, originID string) error
}

// MoveInput entrada para registrar un traslado. MovedAt vacío = ahora.
type MoveInput struct {
	ProductID   string
	FromStoreID string
	ToStoreID   string
	Quantity    decimal.Decimal
	MovedAt     time.Time
	CreatedBy   string
}

// UseCase registra y elimina traslados.
type UseCase struct {
	txRunner repository.TxRunner
	ledger   Ledger
	log      *logger.Logger
	now      func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner repository.TxRunner, ledger Ledger, log *logger.Logger) *UseCase {
	return &UseCase{txRunner: txRunner, ledger: ledger, log: log.Named("movement"), now: time.Now}
}

// Move registra el traslado en su propia transacción.
func (uc *UseCase) Move(ctx context.Context, in MoveInput) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = uc.MoveInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MoveInTx debita el origen, acredita el destino y guarda el traslado dentro de tx.
func (uc *UseCase) MoveInTx(ctx context.Context, tx repository.Repos, in MoveInput) (*entity.StockMovement, error) {
	if in.ProductID == "" || in.FromStoreID == "" || in.ToStoreID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	movedAt := in.MovedAt
	if movedAt.IsZero() {
		movedAt = now
	}
	id := uuid.New().String()

	res, batchID, err := uc.ledger.Transfer(ctx, tx, in.ProductID, in.FromStoreID, in.ToStoreID, in.Quantity, id, movedAt)
	if err != nil {
		return nil, err
	}
	m := &entity.StockMovement{
		ID:                 id,
		ProductID:          in.ProductID,
		FromStoreID:        in.FromStoreID,
		ToStoreID:          in.ToStoreID,
		Quantity:           in.Quantity,
		UnitCostInclTax:    res.UnitCost(),
		TotalCost:          res.TotalCost,
		DestinationBatchID: batchID,
		MovedAt:            movedAt,
		CreatedBy:          in.CreatedBy,
		CreatedAt:          now,
	}
	if err := tx.Movements().Create(ctx, m); err != nil {
		return nil, fmt.Errorf("guardar traslado: %w", err)
	}
	uc.log.Info().
		Str("movement_id", m.ID).
		Str("product_id", m.ProductID).
		Str("quantity", m.Quantity.String()).
		Str("total_cost", m.TotalCost.String()).
		Msg("traslado registrado")
	return m, nil
}

// Delete elimina el traslado en su propia transacción.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	return uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		return uc.DeleteInTx(ctx, tx, id)
	})
}

// DeleteInTx revierte el traslado (falla si el lote destino ya se consumió) y borra su registro.
func (uc *UseCase) DeleteInTx(ctx context.Context, tx repository.Repos, id string) error {
	m, err := tx.Movements().GetForUpdate(ctx, id)
	if err != nil {
		return fmt.Errorf("obtener traslado: %w", err)
	}
	if m == nil {
		return fmt.Errorf("traslado %s: %w", id, domain.ErrNotFound)
	}
	if err := uc.ledger.RevertOriginScoped(ctx, tx, m.ProductID, m.FromStoreID, m.Quantity, m.ToStoreID, m.ID); err != nil {
		return err
	}
	if err := tx.Movements().Delete(ctx, m.ID, uc.now()); err != nil {
		return fmt.Errorf("eliminar traslado: %w", err)
	}
	uc.log.Info().Str("movement_id", m.ID).Msg("traslado revertido")
	return nil
}
