// Package memory implementa los puertos del ledger en memoria. Las transacciones se serializan
// y trabajan sobre una copia del estado que sólo se publica al confirmar; si fn falla la copia se
// descarta. Se usa en tests y en entornos sin PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.TxRunner    = (*Store)(nil)
	_ repository.StockReader = (*Store)(nil)
)

type state struct {
	stores      map[string]entity.Store
	suppliers   map[string]entity.Supplier
	products    map[string]entity.ProductDetails
	pas         map[string]entity.ProductAtStore
	batches     map[string]entity.StockBatch
	allocations map[string]entity.StockAllocation
	records     map[string]entity.PurchaseRecord
	items       map[string]entity.PurchaseItem
	movements   map[string]entity.StockMovement
	expenses    map[string]entity.Expense
	seq         int64
}

func newState() *state {
	return &state{
		stores:      map[string]entity.Store{},
		suppliers:   map[string]entity.Supplier{},
		products:    map[string]entity.ProductDetails{},
		pas:         map[string]entity.ProductAtStore{},
		batches:     map[string]entity.StockBatch{},
		allocations: map[string]entity.StockAllocation{},
		records:     map[string]entity.PurchaseRecord{},
		items:       map[string]entity.PurchaseItem{},
		movements:   map[string]entity.StockMovement{},
		expenses:    map[string]entity.Expense{},
	}
}

// clone copia el estado por valor; los campos puntero (fechas de borrado, padres) nunca se
// modifican en sitio, sólo se reemplazan.
func (s *state) clone() *state {
	c := &state{
		stores:      cloneMap(s.stores),
		suppliers:   cloneMap(s.suppliers),
		products:    cloneMap(s.products),
		pas:         cloneMap(s.pas),
		batches:     cloneMap(s.batches),
		allocations: cloneMap(s.allocations),
		records:     cloneMap(s.records),
		items:       cloneMap(s.items),
		movements:   cloneMap(s.movements),
		expenses:    cloneMap(s.expenses),
		seq:         s.seq,
	}
	return c
}

func cloneMap[V any](m map[string]V) map[string]V {
	c := make(map[string]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (s *state) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *state) availableStock(productID, storeID string) decimal.Decimal {
	total := decimal.Zero
	for _, b := range s.batches {
		if b.ProductID == productID && b.StoreID == storeID && b.DeletedAt == nil {
			total = total.Add(b.CurrentQuantity)
		}
	}
	return total
}

// Store es el backend en memoria.
type Store struct {
	txMu sync.Mutex   // serializa transacciones
	mu   sync.RWMutex // protege st
	st   *state
}

// New crea un Store vacío.
func New() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn sobre una copia del estado y la publica si fn no falla. Los hooks AfterCommit
// corren después de publicar. fn no debe llamar a Run (se bloquearía).
func (s *Store) Run(ctx context.Context, fn func(tx repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	tx := &txRepos{st: work}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()

	for _, hook := range tx.hooks {
		hook(ctx)
	}
	return nil
}

// AvailableStock lee el estado confirmado.
func (s *Store) AvailableStock(_ context.Context, productID, storeID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.availableStock(productID, storeID), nil
}

// seed aplica fn directamente sobre el estado confirmado.
func (s *Store) seed(fn func(st *state)) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// AddStore registra una tienda.
func (s *Store) AddStore(store entity.Store) {
	s.seed(func(st *state) { st.stores[store.ID] = store })
}

// AddSupplier registra un proveedor.
func (s *Store) AddSupplier(sup entity.Supplier) {
	s.seed(func(st *state) { st.suppliers[sup.ID] = sup })
}

// AddProduct registra una ficha de producto.
func (s *Store) AddProduct(p entity.ProductDetails) {
	s.seed(func(st *state) { st.products[p.ID] = p })
}

// AddProductAtStore registra una fila de precio por tienda.
func (s *Store) AddProductAtStore(pas entity.ProductAtStore) {
	s.seed(func(st *state) { st.pas[pas.ID] = pas })
}

// AddBatch registra un lote tal cual (ajustes iniciales) y devuelve su Seq.
func (s *Store) AddBatch(b entity.StockBatch) int64 {
	var seq int64
	s.seed(func(st *state) {
		b.Seq = st.nextSeq()
		seq = b.Seq
		st.batches[b.ID] = b
	})
	return seq
}

// Batch devuelve una copia del lote (incluidos los eliminados) o nil.
func (s *Store) Batch(id string) *entity.StockBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.st.batches[id]
	if !ok {
		return nil
	}
	return &b
}

// Batches devuelve copias de los lotes vivos del producto en la tienda, en orden de inserción.
func (s *Store) Batches(productID, storeID string) []*entity.StockBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.StockBatch
	for _, b := range s.st.batches {
		if b.ProductID == productID && b.StoreID == storeID && b.DeletedAt == nil {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// AllBatches devuelve copias de todos los lotes, vivos y eliminados.
func (s *Store) AllBatches() []*entity.StockBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.StockBatch, 0, len(s.st.batches))
	for _, b := range s.st.batches {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Product devuelve una copia de la ficha o nil.
func (s *Store) Product(id string) *entity.ProductDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.st.products[id]
	if !ok {
		return nil
	}
	return &p
}

// ProductAtStore devuelve una copia de la fila de precio o nil.
func (s *Store) ProductAtStore(productID, storeID string) *entity.ProductAtStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findPAS(s.st, productID, storeID)
}

// PurchaseRecord devuelve una copia de la cabecera o nil.
func (s *Store) PurchaseRecord(id string) *entity.PurchaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.st.records[id]
	if !ok {
		return nil
	}
	return &r
}

// PurchaseItem devuelve una copia de la línea o nil.
func (s *Store) PurchaseItem(id string) *entity.PurchaseItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.st.items[id]
	if !ok {
		return nil
	}
	return &it
}

// Movement devuelve una copia del traslado o nil.
func (s *Store) Movement(id string) *entity.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.st.movements[id]
	if !ok {
		return nil
	}
	return &m
}

// Expense devuelve una copia del gasto o nil.
func (s *Store) Expense(id string) *entity.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.st.expenses[id]
	if !ok {
		return nil
	}
	return &e
}

// ActiveAllocations devuelve el rastro no revertido del consumidor, en orden de Seq.
func (s *Store) ActiveAllocations(kind, id string) []*entity.StockAllocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeAllocations(s.st, kind, id)
}

func findPAS(st *state, productID, storeID string) *entity.ProductAtStore {
	for _, p := range st.pas {
		if p.ProductID == productID && p.StoreID == storeID {
			p := p
			return &p
		}
	}
	return nil
}

func activeAllocations(st *state, kind, id string) []*entity.StockAllocation {
	var out []*entity.StockAllocation
	for _, a := range st.allocations {
		if a.ConsumerKind == kind && a.ConsumerID == id && a.RevertedAt == nil {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
