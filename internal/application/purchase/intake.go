package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/catalog"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
	"github.com/jhoicas/stockledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// RecordInput cabecera de una compra a registrar.
type RecordInput struct {
	SupplierID   *string
	Reference    string
	PurchaseDate time.Time
}

// LineInput una línea de compra. El producto se resuelve por ProductID, luego Barcode, luego
// nombre normalizado; si no existe se crea con Name/Kind. ParentLocalID enlaza un producto
// compuesto o transformado con la línea de su padre, que puede venir después en la misma compra.
type LineInput struct {
	LocalID       string
	ProductID     string
	Barcode       string
	Name          string
	Kind          string
	ParentLocalID string
	Quantity      decimal.Decimal
	Costs         entity.CostFields
	SalePrice     decimal.Decimal // precio para filas ProductAtStore nuevas
	Stores        []StoreQty
}

// IntakeUseCase registra compras y crea sus lotes iniciales.
type IntakeUseCase struct {
	txRunner repository.TxRunner
	notifier StockNotifier
	log      *logger.Logger
	now      func() time.Time
}

// NewIntakeUseCase construye el caso de uso.
func NewIntakeUseCase(txRunner repository.TxRunner, notifier StockNotifier, log *logger.Logger) *IntakeUseCase {
	return &IntakeUseCase{
		txRunner: txRunner,
		notifier: notifier,
		log:      log.Named("purchase"),
		now:      time.Now,
	}
}

// Submit registra la compra en su propia transacción.
func (uc *IntakeUseCase) Submit(ctx context.Context, rec RecordInput, lines []LineInput) (*entity.PurchaseRecord, error) {
	var out *entity.PurchaseRecord
	err := uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = uc.Intake(ctx, tx, rec, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Intake registra la compra dentro de tx: resuelve o crea productos (dos pasadas para enlazar
// padres declarados después de sus hijos), resuelve o crea las filas de precio y crea un lote
// intacto por línea y tienda.
func (uc *IntakeUseCase) Intake(ctx context.Context, tx repository.Repos, in RecordInput, lines []LineInput) (*entity.PurchaseRecord, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	if in.SupplierID != nil {
		sup, err := tx.Suppliers().GetSupplier(ctx, *in.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("obtener proveedor: %w", err)
		}
		if sup == nil {
			return nil, fmt.Errorf("proveedor %s: %w", *in.SupplierID, domain.ErrNotFound)
		}
	}
	checked := map[string]bool{}
	for _, l := range lines {
		for _, s := range l.Stores {
			if checked[s.StoreID] {
				continue
			}
			if err := requireStore(ctx, tx, s.StoreID); err != nil {
				return nil, err
			}
			checked[s.StoreID] = true
		}
	}

	now := uc.now()

	// Pasada 1: id local -> producto.
	byLocal := make(map[string]*entity.ProductDetails, len(lines))
	for _, l := range lines {
		p, err := resolveProduct(ctx, tx, l, now)
		if err != nil {
			return nil, err
		}
		byLocal[l.LocalID] = p
	}
	// Pasada 2: enlaces padre/hijo, independiente del orden de envío.
	for _, l := range lines {
		if l.ParentLocalID == "" {
			continue
		}
		if err := linkParent(ctx, tx, byLocal[l.LocalID], byLocal[l.ParentLocalID], l.Kind, now); err != nil {
			return nil, err
		}
	}

	purchaseDate := in.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = now
	}
	rec := &entity.PurchaseRecord{
		ID:           uuid.New().String(),
		SupplierID:   in.SupplierID,
		Reference:    in.Reference,
		PurchaseDate: purchaseDate,
		Total:        decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.Purchases().CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("crear compra: %w", err)
	}

	for i, l := range lines {
		costs := l.Costs.Normalize()
		item := &entity.PurchaseItem{
			ID:               uuid.New().String(),
			PurchaseRecordID: rec.ID,
			ProductID:        byLocal[l.LocalID].ID,
			LocalID:          l.LocalID,
			Quantity:         l.Quantity,
			CostFields:       costs,
			Total:            entity.LineTotal(l.Quantity, costs),
			// Orden estable de las líneas dentro de la compra.
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt: now,
		}
		if err := tx.Purchases().CreateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("crear línea de compra: %w", err)
		}
		for _, s := range l.Stores {
			pas, err := ensureProductAtStore(ctx, tx, item.ProductID, s.StoreID, l.SalePrice, now)
			if err != nil {
				return nil, err
			}
			b, err := newPurchaseBatch(ctx, tx, item, rec, pas, s.Quantity, now)
			if err != nil {
				return nil, err
			}
			item.Stores = append(item.Stores, entity.PurchaseItemStore{
				StoreID:   s.StoreID,
				Quantity:  s.Quantity,
				Remaining: s.Quantity,
				BatchID:   b.ID,
			})
			uc.notifier.InvalidateOnCommit(tx, item.ProductID, s.StoreID)
		}
		rec.Total = rec.Total.Add(item.Total)
		rec.Items = append(rec.Items, item)
	}

	if err := tx.Purchases().UpdateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("actualizar total de compra: %w", err)
	}

	uc.log.Debug().
		Str("purchase_id", rec.ID).
		Int("items", len(rec.Items)).
		Str("total", rec.Total.String()).
		Msg("compra registrada")
	return rec, nil
}

// validateLines valida cantidades, costos, ids locales y el grafo de padres antes de escribir nada.
func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("compra sin líneas: %w", domain.ErrInvalidInput)
	}
	parents := make(map[string]string, len(lines))
	for _, l := range lines {
		if l.LocalID == "" {
			return fmt.Errorf("línea sin id local: %w", domain.ErrInvalidInput)
		}
		if _, dup := parents[l.LocalID]; dup {
			return fmt.Errorf("id local %s repetido: %w", l.LocalID, domain.ErrInvalidInput)
		}
		parents[l.LocalID] = l.ParentLocalID

		if !l.Quantity.IsPositive() || len(l.Stores) == 0 {
			return fmt.Errorf("línea %s: %w", l.LocalID, domain.ErrInvalidQuantity)
		}
		sum, err := sumStores(l.Stores)
		if err != nil {
			return err
		}
		for _, s := range l.Stores {
			if !s.Quantity.IsPositive() {
				return fmt.Errorf("línea %s, tienda %s: %w", l.LocalID, s.StoreID, domain.ErrInvalidQuantity)
			}
		}
		if !sum.Equal(l.Quantity) {
			return fmt.Errorf("línea %s: tiendas suman %s, cantidad %s: %w", l.LocalID, sum, l.Quantity, domain.ErrInvalidQuantity)
		}
		if !l.Costs.Valid() {
			return fmt.Errorf("línea %s: costo negativo: %w", l.LocalID, domain.ErrInvalidInput)
		}
		if l.ProductID == "" && strings.TrimSpace(l.Barcode) == "" && strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("línea %s sin producto: %w", l.LocalID, domain.ErrInvalidInput)
		}
		switch l.Kind {
		case "", entity.ProductKindSimple:
			if l.ParentLocalID != "" {
				return fmt.Errorf("línea %s: un producto simple no tiene padre: %w", l.LocalID, domain.ErrInvalidInput)
			}
		case entity.ProductKindComposite, entity.ProductKindTransformed:
		default:
			return fmt.Errorf("línea %s: tipo %q: %w", l.LocalID, l.Kind, domain.ErrInvalidInput)
		}
	}

	for local, parent := range parents {
		if parent == "" {
			continue
		}
		if parent == local {
			return fmt.Errorf("línea %s es su propio padre: %w", local, domain.ErrInvalidInput)
		}
		if _, ok := parents[parent]; !ok {
			return fmt.Errorf("línea %s: padre %s desconocido: %w", local, parent, domain.ErrInvalidInput)
		}
		seen := map[string]bool{local: true}
		for p := parent; p != ""; p = parents[p] {
			if seen[p] {
				return fmt.Errorf("ciclo de padres en línea %s: %w", local, domain.ErrInvalidInput)
			}
			seen[p] = true
		}
	}
	return nil
}

// resolveProduct busca por id, luego por código de barras, luego por nombre normalizado; si no
// encuentra, crea la ficha.
func resolveProduct(ctx context.Context, tx repository.Repos, l LineInput, now time.Time) (*entity.ProductDetails, error) {
	cat := tx.Catalog()
	if l.ProductID != "" {
		p, err := cat.GetProduct(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("obtener producto: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("producto %s: %w", l.ProductID, domain.ErrNotFound)
		}
		return p, nil
	}
	barcode := strings.TrimSpace(l.Barcode)
	if barcode != "" {
		p, err := cat.FindProductByBarcode(ctx, barcode)
		if err != nil {
			return nil, fmt.Errorf("buscar por código de barras: %w", err)
		}
		if p != nil {
			return p, nil
		}
	}
	key := catalog.NameKey(l.Name)
	if key != "" {
		p, err := cat.FindProductByNameKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("buscar por nombre: %w", err)
		}
		if p != nil {
			return p, nil
		}
	}
	if key == "" {
		return nil, fmt.Errorf("línea %s: producto nuevo sin nombre: %w", l.LocalID, domain.ErrInvalidInput)
	}

	kind := l.Kind
	if kind == "" {
		kind = entity.ProductKindSimple
	}
	p := &entity.ProductDetails{
		ID:        uuid.New().String(),
		Name:      strings.Join(strings.Fields(l.Name), " "),
		NameKey:   key,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if barcode != "" {
		p.Barcode = &barcode
	}
	if err := cat.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("crear producto: %w", err)
	}
	return p, nil
}

// linkParent enlaza child con parent y rechaza ciclos contra los enlaces ya persistidos.
func linkParent(ctx context.Context, tx repository.Repos, child, parent *entity.ProductDetails, kind string, now time.Time) error {
	if child.ID == parent.ID {
		return fmt.Errorf("producto %s no puede ser su propio padre: %w", child.ID, domain.ErrInvalidInput)
	}
	seen := map[string]bool{child.ID: true}
	for cur := parent; cur != nil && cur.ParentID != nil; {
		if seen[*cur.ParentID] {
			return fmt.Errorf("ciclo de padres en producto %s: %w", child.ID, domain.ErrInvalidInput)
		}
		seen[*cur.ParentID] = true
		next, err := tx.Catalog().GetProduct(ctx, *cur.ParentID)
		if err != nil {
			return fmt.Errorf("obtener producto padre: %w", err)
		}
		cur = next
	}

	parentID := parent.ID
	child.ParentID = &parentID
	child.Kind = kind
	child.UpdatedAt = now
	if err := tx.Catalog().UpdateProduct(ctx, child); err != nil {
		return fmt.Errorf("enlazar producto padre: %w", err)
	}
	return nil
}
