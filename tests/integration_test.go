package tests

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/farmstack/inventory-ledger/internal/adapter/storage"
	"github.com/farmstack/inventory-ledger/internal/core/domain"
	"github.com/farmstack/inventory-ledger/internal/core/service"
	"github.com/farmstack/inventory-ledger/internal/port"
)

type testEnv struct {
	store  *storage.MySQLAdapter
	cache  *storage.RedisAdapter
	ledger *service.LedgerService
	mysql  *sql.DB
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/ledger?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	t.Cleanup(func() {
		rdb.Close()
		db.Close()
	})

	store := storage.NewMySQLAdapter(db)
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema failed: %v", err)
	}
	cache := storage.NewRedisAdapter(rdb)

	return &testEnv{
		store:  store,
		cache:  cache,
		ledger: service.NewLedgerService(store, cache, zap.NewNop()),
		mysql:  db,
	}
}

func (env *testEnv) seedItem(t *testing.T, quantity int64) string {
	itemID := "it-" + uuid.New().String()
	now := time.Now().UTC()

	err := env.store.CreateItem(context.Background(), domain.InventoryItem{
		ID:        itemID,
		Name:      "integration test item",
		Category:  "FEED",
		Unit:      "kg",
		Quantity:  decimal.NewFromInt(quantity),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed item failed: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		env.mysql.ExecContext(ctx, `DELETE FROM inventory_transactions WHERE item_id = ?`, itemID)
		env.mysql.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, itemID)
	})

	return itemID
}

func TestIntegration_FullLedgerFlow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	itemID := env.seedItem(t, 100)

	// PURCHASE 50 -> 150
	_, err := env.ledger.Apply(ctx, uuid.New().String(), itemID,
		domain.TransactionPurchase, decimal.NewFromInt(50), "")
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	balance, err := env.ledger.BalanceOf(ctx, itemID)
	if err != nil {
		t.Fatalf("balance read failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected balance 150, got %s", balance)
	}

	// USAGE 30 -> 120
	_, err = env.ledger.Apply(ctx, uuid.New().String(), itemID,
		domain.TransactionUsage, decimal.NewFromInt(30), "")
	if err != nil {
		t.Fatalf("usage failed: %v", err)
	}

	// USAGE 200 -> rejected, nothing changes
	_, err = env.ledger.Apply(ctx, uuid.New().String(), itemID,
		domain.TransactionUsage, decimal.NewFromInt(200), "")
	if !errors.Is(err, domain.ErrNegativeQuantity) {
		t.Fatalf("expected ErrNegativeQuantity, got: %v", err)
	}

	balance, err = env.ledger.BalanceOf(ctx, itemID)
	if err != nil {
		t.Fatalf("balance read failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected balance 120, got %s", balance)
	}

	history, err := env.ledger.HistoryOf(ctx, itemID, port.Page{})
	if err != nil {
		t.Fatalf("history read failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(history))
	}
}

func TestIntegration_ConcurrentConservation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	itemID := env.seedItem(t, 1000)

	totalRequests := 50

	var deltaSum atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			txType := domain.TransactionUsage
			qty := int64(1)
			delta := int64(-1)
			if n%2 == 0 {
				txType = domain.TransactionPurchase
				qty = 2
				delta = 2
			}

			_, err := env.ledger.Apply(ctx, uuid.New().String(), itemID,
				txType, decimal.NewFromInt(qty), "")
			if err == nil {
				deltaSum.Add(delta)
			}
		}(i)
	}

	wg.Wait()

	balance, err := env.ledger.BalanceOf(ctx, itemID)
	if err != nil {
		t.Fatalf("balance read failed: %v", err)
	}

	expected := decimal.NewFromInt(1000 + deltaSum.Load())
	if !balance.Equal(expected) {
		t.Errorf("expected balance %s, got %s", expected, balance)
	}
}

func TestIntegration_IdempotencyPreventsDoubleApply(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	itemID := env.seedItem(t, 100)

	requestID := "same-request-id-" + uuid.New().String()

	_, err := env.ledger.Apply(ctx, requestID, itemID,
		domain.TransactionUsage, decimal.NewFromInt(10), "")
	if err != nil {
		t.Fatalf("first apply failed: %v", err)
	}

	_, err = env.ledger.Apply(ctx, requestID, itemID,
		domain.TransactionUsage, decimal.NewFromInt(10), "")
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}

	balance, err := env.ledger.BalanceOf(ctx, itemID)
	if err != nil {
		t.Fatalf("balance read failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected balance 90, got %s", balance)
	}
}

func TestIntegration_ReversalRestoresBalance(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	itemID := env.seedItem(t, 100)

	usage, err := env.ledger.Apply(ctx, uuid.New().String(), itemID,
		domain.TransactionUsage, decimal.NewFromInt(40), "")
	if err != nil {
		t.Fatalf("usage failed: %v", err)
	}

	comp, err := env.ledger.Reverse(ctx, uuid.New().String(), usage.ID, "")
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if comp.Type != domain.TransactionAdjustment {
		t.Errorf("expected compensating ADJUSTMENT, got %s", comp.Type)
	}

	balance, err := env.ledger.BalanceOf(ctx, itemID)
	if err != nil {
		t.Fatalf("balance read failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected balance restored to 100, got %s", balance)
	}

	// Both entries stay in the ledger.
	history, err := env.ledger.HistoryOf(ctx, itemID, port.Page{})
	if err != nil {
		t.Fatalf("history read failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(history))
	}

	// The original is untouched.
	orig := history[0]
	if orig.ID != usage.ID || !orig.AppliedDelta.Equal(decimal.NewFromInt(-40)) {
		t.Errorf("original transaction mutated: %+v", orig)
	}
}
