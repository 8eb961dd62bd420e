package repositories

import "errors"

// Repository errors
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrEarningNotFound     = errors.New("earning not found")
	ErrEarningExists       = errors.New("earning already exists for transaction")
	ErrReceiptNotFound     = errors.New("receipt not found")
	ErrReceiptExists       = errors.New("receipt already exists for transaction")
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrRefundNotFound      = errors.New("refund not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrListingNotFound     = errors.New("listing not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrEventProcessed      = errors.New("event already processed")
	ErrStatusConflict      = errors.New("status changed concurrently")
)
