package repository

import (
	"context"

	"github.com/centbank/facegate/internal/model"
)

// LedgerRepository provides balance mutations and the transaction log.
// Balance changes and their log entries commit in one transaction.
type LedgerRepository interface {
	// Balance returns the current balance in cents.
	Balance(ctx context.Context, userID int64) (int64, error)
	// Deposit credits the account and logs the entry, returning the new balance.
	Deposit(ctx context.Context, userID int64, amount int64, description string) (int64, error)
	// Withdraw debits the account if funds suffice and logs the entry,
	// returning the new balance.
	Withdraw(ctx context.Context, userID int64, amount int64, description string) (int64, error)
	// Transfer moves funds to the receiver's account number, logging one entry
	// per side, and returns the sender's new balance.
	Transfer(ctx context.Context, fromUserID, toAccount int64, amount int64) (int64, error)
	// History returns the most recent entries, newest first.
	History(ctx context.Context, userID int64, limit int) ([]model.Transaction, error)
}
