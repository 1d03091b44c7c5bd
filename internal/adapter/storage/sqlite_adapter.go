package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/farmstack/inventory-ledger/internal/core/domain"
	"github.com/farmstack/inventory-ledger/internal/port"
)

// quantityScale is the fixed-point scale for quantities in SQLite. SQLite has
// no decimal type, so quantities are stored as integers scaled by 10^4 and
// incremented with exact integer arithmetic.
const quantityScale = 4

// ErrQuantityPrecision means a quantity carries more than 4 decimal places
// and cannot be stored without rounding.
var ErrQuantityPrecision = errors.New("quantity exceeds 4 decimal places")

type SQLiteAdapter struct {
	db *sql.DB
}

// OpenSQLite opens a file-backed ledger database. SQLite supports a single
// writer, so the pool is capped at one connection; writers queue on the busy
// timeout instead of failing.
func OpenSQLite(path string) (*SQLiteAdapter, error) {
	connStr := fmt.Sprintf("file:%s?_txlock=immediate&_timeout=5000", path)

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &SQLiteAdapter{db: db}, nil
}

// OpenSQLiteMemory opens an in-memory ledger database, used by tests.
func OpenSQLiteMemory() (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteAdapter{db: db}, nil
}

func (s *SQLiteAdapter) Close() error {
	return s.db.Close()
}

func (s *SQLiteAdapter) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			category      TEXT NOT NULL DEFAULT '',
			unit          TEXT NOT NULL DEFAULT '',
			quantity      INTEGER NOT NULL DEFAULT 0,
			cost_per_unit INTEGER NOT NULL DEFAULT 0,
			reorder_level INTEGER NOT NULL DEFAULT 0,
			version       INTEGER NOT NULL DEFAULT 0,
			active        INTEGER NOT NULL DEFAULT 1,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_transactions (
			id               TEXT PRIMARY KEY,
			item_id          TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			quantity_change  INTEGER NOT NULL,
			applied_delta    INTEGER NOT NULL,
			notes            TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_item_created
			ON inventory_transactions (item_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("init schema", err)
		}
	}
	return nil
}

func toScaled(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(quantityScale)
	if !shifted.IsInteger() {
		return 0, ErrQuantityPrecision
	}
	return shifted.IntPart(), nil
}

func fromScaled(n int64) decimal.Decimal {
	return decimal.New(n, -quantityScale)
}

// ApplyTransaction mirrors the MySQL adapter: record insert plus conditional
// balance increment in one transaction. The single-connection pool plus the
// immediate transaction lock makes the pair indivisible.
func (s *SQLiteAdapter) ApplyTransaction(ctx context.Context, t domain.Transaction) (decimal.Decimal, error) {
	delta, err := toScaled(t.AppliedDelta)
	if err != nil {
		return decimal.Zero, err
	}
	change, err := toScaled(t.QuantityChange)
	if err != nil {
		return decimal.Zero, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, storageErr("begin tx", err)
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT active FROM inventory_items WHERE id = ?`, t.ItemID,
	).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrItemNotFound
	}
	if err != nil {
		return decimal.Zero, storageErr("check item", err)
	}
	if !active {
		return decimal.Zero, domain.ErrItemNotFound
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = quantity + ?, version = version + 1, updated_at = ?
		WHERE id = ? AND quantity + ? >= 0`,
		delta, time.Now().UTC(), t.ItemID, delta,
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
		t.ID, t.ItemID, string(t.Type), change, delta, t.Notes, t.CreatedAt,
	)
	if err != nil {
		return decimal.Zero, storageErr("insert transaction", err)
	}

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM inventory_items WHERE id = ?`, t.ItemID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, storageErr("read balance", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, storageErr("commit", err)
	}

	return fromScaled(balance), nil
}

func (s *SQLiteAdapter) GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	var (
		item                             domain.InventoryItem
		quantity, costPerUnit, reorderAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, unit, quantity, cost_per_unit, reorder_level, version, active, created_at, updated_at
		FROM inventory_items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.Name, &item.Category, &item.Unit, &quantity,
		&costPerUnit, &reorderAt, &item.Version, &item.Active, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, storageErr("query item", err)
	}

	item.Quantity = fromScaled(quantity)
	item.CostPerUnit = fromScaled(costPerUnit)
	item.ReorderLevel = fromScaled(reorderAt)
	return &item, nil
}

func (s *SQLiteAdapter) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	var (
		t             domain.Transaction
		change, delta int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, item_id, transaction_type, quantity_change, applied_delta, notes, created_at
		FROM inventory_transactions WHERE id = ?`, txID,
	).Scan(&t.ID, &t.ItemID, &t.Type, &change, &delta, &t.Notes, &t.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, storageErr("query transaction", err)
	}

	t.QuantityChange = fromScaled(change)
	t.AppliedDelta = fromScaled(delta)
	return &t, nil
}

func (s *SQLiteAdapter) ListTransactions(ctx context.Context, itemID string, page port.Page) ([]domain.Transaction, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
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
		var (
			t             domain.Transaction
			change, delta int64
		)
		if err := rows.Scan(&t.ID, &t.ItemID, &t.Type, &change, &delta, &t.Notes, &t.CreatedAt); err != nil {
			return nil, storageErr("scan transaction", err)
		}
		t.QuantityChange = fromScaled(change)
		t.AppliedDelta = fromScaled(delta)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transactions", err)
	}

	return result, nil
}

func (s *SQLiteAdapter) CreateItem(ctx context.Context, item domain.InventoryItem) error {
	quantity, err := toScaled(item.Quantity)
	if err != nil {
		return err
	}
	costPerUnit, err := toScaled(item.CostPerUnit)
	if err != nil {
		return err
	}
	reorderAt, err := toScaled(item.ReorderLevel)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inventory_items
			(id, name, category, unit, quantity, cost_per_unit, reorder_level, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Category, item.Unit, quantity,
		costPerUnit, reorderAt, item.Active, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return storageErr("insert item", err)
	}
	return nil
}

func (s *SQLiteAdapter) DeactivateItem(ctx context.Context, itemID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE inventory_items SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), itemID,
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
