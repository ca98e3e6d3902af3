package service

import (
	"errors"

	"campuswallet/internal/infrastructure/lock"
	"campuswallet/internal/repository"
)

// Business errors. These are terminal: the operation was rejected before
// anything was written and retrying with the same arguments will fail again.
var (
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrAccountInactive     = errors.New("account is deactivated")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRecipientNotFound   = errors.New("recipient account not found")
	ErrRecipientInactive   = errors.New("recipient account is deactivated")
	ErrSelfTransfer        = errors.New("sender and recipient are the same account")
)

// IsRetryable reports whether the failed operation wrote nothing and may be
// safely retried as a fresh operation. Everything else is a terminal
// business error surfaced to the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, lock.ErrLockTimeout) ||
		errors.Is(err, repository.ErrConcurrentUpdate)
}
