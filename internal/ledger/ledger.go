// Package ledger exposes account money operations over the ledger repository.
package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
	"github.com/centbank/facegate/internal/repository"
)

// historyLimit caps how many entries a statement returns.
const historyLimit = 50

// Service validates money operations and delegates to the repository, which
// commits balance changes and log entries atomically.
type Service struct {
	repo  repository.LedgerRepository
	users repository.UserRepository
	log   *zap.Logger
}

// NewService constructs the ledger service.
func NewService(repo repository.LedgerRepository, users repository.UserRepository, log *zap.Logger) *Service {
	return &Service{repo: repo, users: users, log: log}
}

// Balance returns the user's balance in cents.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.repo.Balance(ctx, userID)
}

// Deposit credits the account and returns the new balance.
func (s *Service) Deposit(ctx context.Context, userID int64, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, errs.ErrInvalidAmount
	}
	if description == "" {
		description = "Deposit"
	}
	bal, err := s.repo.Deposit(ctx, userID, amount, description)
	if err != nil {
		return 0, fmt.Errorf("deposit: %w", err)
	}
	s.log.Info("deposit", zap.Int64("user_id", userID), zap.Int64("amount", amount))
	return bal, nil
}

// Withdraw debits the account if funds suffice and returns the new balance.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, errs.ErrInvalidAmount
	}
	if description == "" {
		description = "Withdrawal"
	}
	bal, err := s.repo.Withdraw(ctx, userID, amount, description)
	if err != nil {
		return 0, err
	}
	s.log.Info("withdraw", zap.Int64("user_id", userID), zap.Int64("amount", amount))
	return bal, nil
}

// Transfer moves funds to another customer's account number and returns the
// sender's new balance. Transfers to the sender's own account are rejected.
func (s *Service) Transfer(ctx context.Context, userID int64, toAccount int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, errs.ErrInvalidAmount
	}
	sender, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if sender.AccountNumber == toAccount {
		return 0, errs.ErrSelfTransfer
	}
	bal, err := s.repo.Transfer(ctx, userID, toAccount, amount)
	if err != nil {
		return 0, err
	}
	s.log.Info("transfer",
		zap.Int64("user_id", userID),
		zap.Int64("to_account", toAccount),
		zap.Int64("amount", amount))
	return bal, nil
}

// History returns the user's most recent ledger entries, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]model.Transaction, error) {
	return s.repo.History(ctx, userID, historyLimit)
}
