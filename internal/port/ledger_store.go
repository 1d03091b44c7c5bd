package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/farmstack/inventory-ledger/internal/core/domain"
)

// Page bounds a history read. Limit <= 0 means the adapter's default page.
type Page struct {
	Limit  int
	Offset int
}

type LedgerStore interface {
	// ApplyTransaction persists the transaction record and moves the item
	// balance by tx.AppliedDelta in a single unit of work. Either both writes
	// commit or neither is visible. Returns the balance after the update.
	//
	// The balance mutation is a conditional increment on the item row; the
	// update is rejected with domain.ErrNegativeQuantity when the balance
	// would drop below zero, and with domain.ErrItemNotFound when the item
	// is missing or deactivated.
	ApplyTransaction(ctx context.Context, tx domain.Transaction) (decimal.Decimal, error)

	// GetItem retrieves an item by id, deactivated items included.
	GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error)

	// GetTransaction retrieves one ledger entry by id.
	GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error)

	// ListTransactions returns an item's entries ordered by creation time
	// ascending, restartable via the page offset.
	ListTransactions(ctx context.Context, itemID string, page Page) ([]domain.Transaction, error)

	// CreateItem registers a new catalog item. The ledger never creates items
	// on its own; this is the minimum surface the external catalog needs.
	CreateItem(ctx context.Context, item domain.InventoryItem) error

	// DeactivateItem soft-deactivates an item so further applies are refused.
	DeactivateItem(ctx context.Context, itemID string) error
}
