package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockStatusAdequate        StockStatus = "ADEQUATE"
	StockStatusLowStock        StockStatus = "LOW_STOCK"
	StockStatusReorderRequired StockStatus = "REORDER_REQUIRED"
)

// InventoryItem is the balance side of the ledger. Quantity is only ever
// mutated through an applied Transaction; items are soft-deactivated, never
// deleted, while transactions reference them.
type InventoryItem struct {
	ID           string
	Name         string
	Category     string
	Unit         string
	Quantity     decimal.Decimal
	CostPerUnit  decimal.Decimal
	ReorderLevel decimal.Decimal
	Version      int64 // bumped on every balance update
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i *InventoryItem) ShouldReorder() bool {
	return i.Quantity.LessThanOrEqual(i.ReorderLevel)
}

func (i *InventoryItem) Status() StockStatus {
	switch {
	case i.Quantity.IsZero():
		return StockStatusReorderRequired
	case i.ShouldReorder():
		return StockStatusLowStock
	default:
		return StockStatusAdequate
	}
}

// StockValue is the cost of the on-hand balance at the recorded unit cost.
func (i *InventoryItem) StockValue() decimal.Decimal {
	return i.Quantity.Mul(i.CostPerUnit)
}
