package purchase

import "github.com/jhoicas/stockledger/internal/domain/repository"

// StockNotifier avisa al ledger de que un par (producto, tienda) cambió dentro de tx.
type StockNotifier interface {
	InvalidateOnCommit(tx repository.Repos, productID, storeID string)
}
