package domain

import "errors"

var (
	// ErrItemNotFound means the item id does not resolve to an active item.
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrTransactionNotFound means the transaction id does not resolve.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidTransactionType means the type is not a recognized variant.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrNegativeQuantity means the magnitude was negative or the resulting
	// balance would drop below zero.
	ErrNegativeQuantity = errors.New("quantity would go negative")

	// ErrStorageUnavailable means the atomic unit of work could not be
	// committed. No partial write is visible when this is returned.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrDuplicateRequest means the idempotency key was already consumed.
	ErrDuplicateRequest = errors.New("duplicate request")
)
