package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/farmstack/inventory-ledger/internal/core/domain"
	"github.com/farmstack/inventory-ledger/internal/metrics"
	"github.com/farmstack/inventory-ledger/internal/port"
)

// LedgerService is the single write path for inventory balances. Every
// mutation flows through Apply or Reverse as one atomic unit of work in the
// backing store; nothing else may touch an item's quantity.
type LedgerService struct {
	store  port.LedgerStore
	cache  port.CacheRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewLedgerService(store port.LedgerStore, cache port.CacheRepository, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:  store,
		cache:  cache,
		logger: logger,
		tracer: otel.Tracer("ledger_service"),
	}
}

// Apply validates the request, derives the signed delta from the transaction
// type and commits the entry together with the balance update. requestID is a
// caller-supplied idempotency key; an empty requestID opts out of
// deduplication. Errors are one of the domain sentinels and never come with a
// partial write.
func (s *LedgerService) Apply(ctx context.Context, requestID, itemID string, txType domain.TransactionType, quantityChange decimal.Decimal, notes string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("item_id", itemID),
		attribute.String("transaction_type", string(txType)),
	)

	delta, err := domain.DeltaFor(txType, quantityChange)
	if err != nil {
		metrics.ApplyFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	release, err := s.claimIdempotency(ctx, "ledger:apply:"+requestID, requestID != "")
	if err != nil {
		metrics.ApplyFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	tx := domain.Transaction{
		ID:             uuid.New().String(),
		ItemID:         itemID,
		Type:           txType,
		QuantityChange: quantityChange,
		AppliedDelta:   delta,
		Notes:          notes,
		CreatedAt:      time.Now().UTC(),
	}

	balance, err := s.commit(ctx, tx, release)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction applied",
		zap.String("transaction_id", tx.ID),
		zap.String("item_id", itemID),
		zap.String("type", string(txType)),
		zap.String("applied_delta", delta.String()),
		zap.String("balance", balance.String()),
	)

	return &tx, nil
}

// Reverse compensates a previously applied transaction with a new ADJUSTMENT
// entry carrying the negation of the recorded applied delta. The original
// record is never touched; an audit therefore sees both entries. The
// compensating apply is subject to the same non-negative balance floor.
func (s *LedgerService) Reverse(ctx context.Context, requestID, transactionID, notes string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.Reverse")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", transactionID))

	orig, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		metrics.ApplyFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	release, err := s.claimIdempotency(ctx, "ledger:reverse:"+requestID, requestID != "")
	if err != nil {
		metrics.ApplyFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	if notes == "" {
		notes = "reversal of " + orig.ID
	}

	comp := domain.Transaction{
		ID:             uuid.New().String(),
		ItemID:         orig.ItemID,
		Type:           domain.TransactionAdjustment,
		QuantityChange: orig.AppliedDelta.Abs(),
		// negate the delta as recorded, never re-derive it from the type
		AppliedDelta: orig.AppliedDelta.Neg(),
		Notes:        notes,
		CreatedAt:    time.Now().UTC(),
	}

	balance, err := s.commit(ctx, comp, release)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction reversed",
		zap.String("original_id", orig.ID),
		zap.String("compensating_id", comp.ID),
		zap.String("item_id", orig.ItemID),
		zap.String("balance", balance.String()),
	)

	return &comp, nil
}

// BalanceOf returns the current durable balance, served from the cache when
// fresh. The cache is invalidated on every write and capped by a short TTL,
// so a stale read converges quickly; the store stays authoritative.
func (s *LedgerService) BalanceOf(ctx context.Context, itemID string) (decimal.Decimal, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.BalanceOf")
	defer span.End()
	span.SetAttributes(attribute.String("item_id", itemID))

	if balance, ok, err := s.cache.GetBalance(ctx, itemID); err == nil && ok {
		return balance, nil
	} else if err != nil {
		s.logger.Warn("balance cache read failed", zap.String("item_id", itemID), zap.Error(err))
	}

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.cache.SetBalance(ctx, itemID, item.Quantity); err != nil {
		s.logger.Warn("balance cache write failed", zap.String("item_id", itemID), zap.Error(err))
	}

	return item.Quantity, nil
}

// HistoryOf returns the item's ledger entries ordered by creation time
// ascending. The page offset makes the sequence restartable.
func (s *LedgerService) HistoryOf(ctx context.Context, itemID string, page port.Page) ([]domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.HistoryOf")
	defer span.End()
	span.SetAttributes(attribute.String("item_id", itemID))

	return s.store.ListTransactions(ctx, itemID, page)
}

// claimIdempotency consumes the key and returns a release func that frees it
// again if the unit of work never commits.
func (s *LedgerService) claimIdempotency(ctx context.Context, key string, enabled bool) (func(), error) {
	if !enabled {
		return func() {}, nil
	}

	ok, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return nil, domain.ErrDuplicateRequest
	}

	return func() {
		if err := s.cache.ReleaseIdempotency(ctx, key); err != nil {
			s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *LedgerService) commit(ctx context.Context, tx domain.Transaction, release func()) (decimal.Decimal, error) {
	start := time.Now()

	balance, err := s.store.ApplyTransaction(ctx, tx)
	if err != nil {
		metrics.ApplyFailures.WithLabelValues(failureReason(err)).Inc()
		s.logger.Warn("apply rejected",
			zap.String("transaction_id", tx.ID),
			zap.String("item_id", tx.ItemID),
			zap.Error(err),
		)
		// The store guarantees no partial write on failure, so the request
		// is safe to resubmit under the same key.
		release()
		return decimal.Zero, err
	}

	metrics.TransactionsApplied.WithLabelValues(string(tx.Type)).Inc()
	metrics.ApplyDuration.Observe(time.Since(start).Seconds())

	if err := s.cache.InvalidateBalance(ctx, tx.ItemID); err != nil {
		s.logger.Warn("balance cache invalidation failed",
			zap.String("item_id", tx.ItemID), zap.Error(err))
	}

	return balance, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, domain.ErrTransactionNotFound):
		return "transaction_not_found"
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return "invalid_type"
	case errors.Is(err, domain.ErrNegativeQuantity):
		return "negative_quantity"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "other"
	}
}
