package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/farmstack/inventory-ledger/internal/adapter/storage"
	"github.com/farmstack/inventory-ledger/internal/config"
	"github.com/farmstack/inventory-ledger/internal/core/domain"
	"github.com/farmstack/inventory-ledger/internal/core/service"
	"github.com/farmstack/inventory-ledger/internal/port"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	store := storage.NewMySQLAdapter(db)
	cache := storage.NewRedisAdapter(rdb)

	if err := store.InitSchema(ctx); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	// Seed a fresh item so runs never interfere with each other
	itemID := "stress-" + uuid.New().String()
	initial := decimal.NewFromInt(cfg.Stress.InitialStock)
	now := time.Now().UTC()
	err = store.CreateItem(ctx, domain.InventoryItem{
		ID:        itemID,
		Name:      "stress test item",
		Category:  "FEED",
		Unit:      "kg",
		Quantity:  initial,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}

	ledger := service.NewLedgerService(store, cache, logger)

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32
	var deltaSum atomic.Int64

	// Spawn concurrent mixed purchases and usages
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < cfg.Stress.TotalRequests; i++ {
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

			_, err := ledger.Apply(ctx, uuid.New().String(), itemID, txType, decimal.NewFromInt(qty), "")
			if err == nil {
				successCount.Add(1)
				deltaSum.Add(delta)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	final, err := ledger.BalanceOf(ctx, itemID)
	if err != nil {
		log.Fatalf("failed to read balance: %v", err)
	}

	history, err := ledger.HistoryOf(ctx, itemID, port.Page{Limit: cfg.Stress.TotalRequests + 1})
	if err != nil {
		log.Fatalf("failed to read history: %v", err)
	}

	expected := initial.Add(decimal.NewFromInt(deltaSum.Load()))

	// Results
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Balance:  %s\n", initial)
	fmt.Printf("Total Requests:   %d\n", cfg.Stress.TotalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if final.Equal(expected) {
		fmt.Printf("PASS: balance %s equals initial plus sum of applied deltas\n", final)
	} else {
		fmt.Printf("FAIL: expected balance %s, got %s\n", expected, final)
	}

	if int32(len(history)) == successCount.Load() {
		fmt.Printf("PASS: %d transactions recorded, one per successful apply\n", len(history))
	} else {
		fmt.Printf("FAIL: expected %d transactions, got %d\n", successCount.Load(), len(history))
	}
}
