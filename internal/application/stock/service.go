// Package stock implementa el motor de asignación sobre el ledger de lotes: consumo FIFO,
// traslados entre tiendas y reversiones. Todas las escrituras ocurren sobre el repository.Repos
// recibido, de modo que confirman o revierten con la transacción del llamador.
package stock

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Nombres de operación usados en métricas y trazas.
const (
	OpConsume        = "consume"
	OpTransfer       = "transfer"
	OpRevertOrigin   = "revert_origin"
	OpRevertGeneric  = "revert_generic"
	OpRevertConsumer = "revert_consumer"
)

// Service expone el ledger de lotes al resto de la aplicación.
type Service struct {
	reader  repository.StockReader
	cache   AvailabilityCache
	metrics Recorder
	log     *logger.Logger
	now     func() time.Time
}

// Option configura el Service.
type Option func(*Service)

// WithCache activa el caché de lectura de AvailableStock.
func WithCache(c AvailabilityCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithRecorder registra métricas de cada operación.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithLogger asigna el logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l.Named("stock") }
}

// WithClock fija la fuente de tiempo (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService construye el servicio. reader atiende AvailableStock fuera de transacción.
func NewService(reader repository.StockReader, opts ...Option) *Service {
	s := &Service{
		reader:  reader,
		cache:   noopCache{},
		metrics: noopRecorder{},
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailableStock devuelve Σ CurrentQuantity de los lotes vivos; no requiere transacción.
// Un fallo del caché no impide la lectura: se registra y se consulta el ledger.
// El valor leído sólo se guarda si ninguna invalidación ocurrió durante la lectura.
func (s *Service) AvailableStock(ctx context.Context, productID, storeID string) (decimal.Decimal, error) {
	cacheable := true
	if qty, ok, err := s.cache.Get(ctx, productID, storeID); err != nil {
		s.log.Warn().Err(err).Str("product_id", productID).Str("store_id", storeID).Msg("lectura de caché fallida")
		cacheable = false
	} else if ok {
		return qty, nil
	}

	var version int64
	if cacheable {
		v, err := s.cache.Version(ctx, productID, storeID)
		if err != nil {
			s.log.Warn().Err(err).Str("product_id", productID).Str("store_id", storeID).Msg("versión de caché no disponible")
			cacheable = false
		}
		version = v
	}

	qty, err := s.reader.AvailableStock(ctx, productID, storeID)
	if err != nil {
		return decimal.Zero, err
	}
	if !cacheable {
		return qty, nil
	}
	stored, err := s.cache.Fill(ctx, productID, storeID, qty, version)
	if err != nil {
		s.log.Warn().Err(err).Str("product_id", productID).Str("store_id", storeID).Msg("escritura de caché fallida")
	} else if !stored {
		s.log.Debug().Str("product_id", productID).Str("store_id", storeID).Msg("caché invalidado durante la lectura; no se guarda")
	}
	return qty, nil
}

// afterCommit invalida el caché del par (producto, tienda) y registra la operación
// sólo cuando la transacción confirma.
func (s *Service) afterCommit(tx repository.Repos, op string, qty decimal.Decimal, keys ...[2]string) {
	tx.AfterCommit(func(ctx context.Context) {
		for _, k := range keys {
			if err := s.cache.Invalidate(ctx, k[0], k[1]); err != nil {
				s.log.Warn().Err(err).Str("product_id", k[0]).Str("store_id", k[1]).Msg("invalidación de caché fallida")
			}
		}
		if op != "" {
			s.metrics.Operation(op, qty)
		}
	})
}

func (s *Service) fail(op string, err error) error {
	if err != nil {
		s.metrics.Failure(op, err)
	}
	return err
}

func pair(productID, storeID string) [2]string {
	return [2]string{productID, storeID}
}

// InvalidateOnCommit invalida el caché de availableStock del par cuando tx confirme.
// Lo usan los casos de uso que crean o editan lotes sin pasar por el motor de asignación.
func (s *Service) InvalidateOnCommit(tx repository.Repos, productID, storeID string) {
	s.afterCommit(tx, "", decimal.Zero, pair(productID, storeID))
}
