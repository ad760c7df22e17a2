// Package expense registra consumos internos de stock (mermas, uso propio) costeados por FIFO.
package expense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Ledger operaciones del motor de asignación que usa el gasto.
type Ledger interface {
	ConsumeFor(ctx context.Context, tx repository.Repos, ref entity.ConsumerRef, productID, storeID string, qty decimal.Decimal) (*entity.AllocationResult, error)
	RevertConsumer(ctx context.Context, tx repository.Repos, ref entity.ConsumerRef) (*entity.AllocationResult, error)
	RevertGeneric(ctx context.Context, tx repository.Repos, productID, storeID string, qty decimal.Decimal) error
}

// RegisterInput entrada para registrar un gasto interno. ExpenseDate vacío = ahora.
type RegisterInput struct {
	ProductID   string
	StoreID     string
	Quantity    decimal.Decimal
	Reason      string
	ExpenseDate time.Time
	CreatedBy   string
}

// UseCase registra y elimina gastos internos.
type UseCase struct {
	txRunner repository.TxRunner
	ledger   Ledger
	log      *logger.Logger
	now      func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner repository.TxRunner, ledger Ledger, log *logger.Logger) *UseCase {
	return &UseCase{txRunner: txRunner, ledger: ledger, log: log.Named("expense"), now: time.Now}
}

// Register registra el gasto en su propia transacción.
func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (*entity.Expense, error) {
	var out *entity.Expense
	err := uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = uc.RegisterInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterInTx consume el stock con rastro EXPENSE y guarda el gasto con su costo exacto.
func (uc *UseCase) RegisterInTx(ctx context.Context, tx repository.Repos, in RegisterInput) (*entity.Expense, error) {
	if in.ProductID == "" || in.StoreID == "" || strings.TrimSpace(in.Reason) == "" {
		return nil, domain.ErrInvalidInput
	}
	store, err := tx.Stores().GetStore(ctx, in.StoreID)
	if err != nil {
		return nil, fmt.Errorf("obtener tienda: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("tienda %s: %w", in.StoreID, domain.ErrNotFound)
	}

	now := uc.now()
	e := &entity.Expense{
		ID:          uuid.New().String(),
		ProductID:   in.ProductID,
		StoreID:     in.StoreID,
		Quantity:    in.Quantity,
		Reason:      strings.TrimSpace(in.Reason),
		ExpenseDate: in.ExpenseDate,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
	}
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = now
	}
	res, err := uc.ledger.ConsumeFor(ctx, tx, entity.ConsumerRef{Kind: entity.ConsumerExpense, ID: e.ID}, in.ProductID, in.StoreID, in.Quantity)
	if err != nil {
		return nil, err
	}
	e.TotalCost = res.TotalCost
	if err := tx.Expenses().Create(ctx, e); err != nil {
		return nil, fmt.Errorf("guardar gasto: %w", err)
	}
	uc.log.Info().
		Str("expense_id", e.ID).
		Str("product_id", e.ProductID).
		Str("quantity", e.Quantity.String()).
		Str("total_cost", e.TotalCost.String()).
		Msg("gasto registrado")
	return e, nil
}

// Delete elimina el gasto en su propia transacción.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	return uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		return uc.DeleteInTx(ctx, tx, id)
	})
}

// DeleteInTx devuelve el stock del gasto y borra su registro. Usa el rastro si existe; los gastos
// sin rastro se restauran de forma genérica.
func (uc *UseCase) DeleteInTx(ctx context.Context, tx repository.Repos, id string) error {
	e, err := tx.Expenses().GetForUpdate(ctx, id)
	if err != nil {
		return fmt.Errorf("obtener gasto: %w", err)
	}
	if e == nil {
		return fmt.Errorf("gasto %s: %w", id, domain.ErrNotFound)
	}

	ref := entity.ConsumerRef{Kind: entity.ConsumerExpense, ID: e.ID}
	trail, err := tx.Allocations().ListActiveByConsumerForUpdate(ctx, ref.Kind, ref.ID)
	if err != nil {
		return fmt.Errorf("listar rastro: %w", err)
	}
	if len(trail) > 0 {
		if _, err := uc.ledger.RevertConsumer(ctx, tx, ref); err != nil {
			return err
		}
	} else {
		uc.log.Warn().Str("expense_id", e.ID).Msg("gasto sin rastro; restauración genérica")
		if err := uc.ledger.RevertGeneric(ctx, tx, e.ProductID, e.StoreID, e.Quantity); err != nil {
			return err
		}
	}

	if err := tx.Expenses().Delete(ctx, e.ID, uc.now()); err != nil {
		return fmt.Errorf("eliminar gasto: %w", err)
	}
	uc.log.Info().Str("expense_id", e.ID).Msg("gasto eliminado")
	return nil
}
