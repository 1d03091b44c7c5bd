package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/farmstack/inventory-ledger/internal/core/domain"
	"github.com/farmstack/inventory-ledger/internal/port"
)

const defaultPageLimit = 100

// storageErr keeps the driver failure message but makes the error matchable
// as domain.ErrStorageUnavailable.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorageUnavailable)
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// InitSchema provisions the ledger tables. Safe to call repeatedly.
func (m *MySQLAdapter) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id            VARCHAR(36) PRIMARY KEY,
			name          VARCHAR(255) NOT NULL,
			category      VARCHAR(50) NOT NULL DEFAULT '',
			unit          VARCHAR(50) NOT NULL DEFAULT '',
			quantity      DECIMAL(20,4) NOT NULL DEFAULT 0,
			cost_per_unit DECIMAL(20,4) NOT NULL DEFAULT 0,
			reorder_level DECIMAL(20,4) NOT NULL DEFAULT 0,
			version       BIGINT NOT NULL DEFAULT 0,
			active        TINYINT(1) NOT NULL DEFAULT 1,
			created_at    DATETIME(6) NOT NULL,
			updated_at    DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_transactions (
			id               VARCHAR(36) PRIMARY KEY,
			item_id          VARCHAR(36) NOT NULL,
			transaction_type VARCHAR(20) NOT NULL,
			quantity_change  DECIMAL(20,4) NOT NULL,
			applied_delta    DECIMAL(20,4) NOT NULL,
			notes            TEXT,
			created_at       DATETIME(6) NOT NULL,
			KEY idx_tx_item_created (item_id, created_at)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("init schema", err)
		}
	}
	return nil
}

// ApplyTransaction inserts the ledger entry and moves the balance inside one
// database transaction. The balance itself moves via a conditional increment
// on the item row, so concurrent applies serialize on row locks and a balance
// below zero is never stored.
func (m *MySQLAdapter) ApplyTransaction(ctx context.Context, t domain.Transaction) (decimal.Decimal, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, storageErr("begin tx", err)
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT active FROM inventory_items WHERE id = ? FOR UPDATE`, t.ItemID,
	).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrItemNotFound
	}
	if err != nil {
		return decimal.Zero, storageErr("lock item", err)
	}
	if !active {
		return decimal.Zero, domain.ErrItemNotFound
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = quantity + ?, version = version + 1, updated_at = NOW(6)
		WHERE id = ? AND quantity + ? >= 0`,
		t.AppliedDelta, t.ItemID, t.AppliedDelta,
	)
	if err != nil {
		return decimal.Zero, storageErr("update balance", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return decimal.Zero, domain.ErrNegativeQuantity
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory_transactions
			(id, item_id, transaction_type, quantity_change, applied_delta, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ItemID, string(t.Type), t.QuantityChange, t.AppliedDelta, t.Notes, t.CreatedAt,
	)
	if err != nil {
		return decimal.Zero, storageErr("insert transaction", err)
	}

	var balance decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM inventory_items WHERE id = ?`, t.ItemID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, storageErr("read balance", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, storageErr("commit", err)
	}

	return balance, nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, category, unit, quantity, cost_per_unit, reorder_level, version, active, created_at, updated_at
		FROM inventory_items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.Name, &item.Category, &item.Unit, &item.Quantity,
		&item.CostPerUnit, &item.ReorderLevel, &item.Version, &item.Active, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, storageErr("query item", err)
	}

	return &item, nil
}

func (m *MySQLAdapter) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := m.db.QueryRowContext(ctx, `
		SELECT id, item_id, transaction_type, quantity_change, applied_delta, notes, created_at
		FROM inventory_transactions WHERE id = ?`, txID,
	).Scan(&t.ID, &t.ItemID, &t.Type, &t.QuantityChange, &t.AppliedDelta, &t.Notes, &t.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, storageErr("query transaction", err)
	}

	return &t, nil
}

func (m *MySQLAdapter) ListTransactions(ctx context.Context, itemID string, page port.Page) ([]domain.Transaction, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, item_id, transaction_type, quantity_change, applied_delta, notes, created_at
		FROM inventory_transactions
		WHERE item_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`, itemID, limit, offset,
	)
	if err != nil {
		return nil, storageErr("query transactions", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.ItemID, &t.Type, &t.QuantityChange,
			&t.AppliedDelta, &t.Notes, &t.CreatedAt); err != nil {
			return nil, storageErr("scan transaction", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transactions", err)
	}

	return result, nil
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item domain.InventoryItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory_items
			(id, name, category, unit, quantity, cost_per_unit, reorder_level, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Category, item.Unit, item.Quantity,
		item.CostPerUnit, item.ReorderLevel, item.Active, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return storageErr("insert item", err)
	}
	return nil
}

func (m *MySQLAdapter) DeactivateItem(ctx context.Context, itemID string) error {
	result, err := m.db.ExecContext(ctx,
		`UPDATE inventory_items SET active = 0, updated_at = NOW(6) WHERE id = ?`, itemID,
	)
	if err != nil {
		return storageErr("deactivate item", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}
