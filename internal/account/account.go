// Package account manages customer records: registration and profile
// maintenance.
package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	pkgcrypto "github.com/centbank/facegate/internal/crypto"
	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
	"github.com/centbank/facegate/internal/repository"
)

const (
	minPasswordLen = 8
	defaultBank    = "CENT"

	// Identifier ranges kept from the legacy account scheme: five-digit
	// customer numbers, ten-digit account numbers.
	customerIDMin = 10000
	customerIDMax = 99999
	accountMin    = 1_000_000_000
	accountMax    = 9_999_999_999

	// Collisions on random ids are resolved by regenerating a few times
	// before giving up.
	createRetries = 5
)

// Service implements registration and profile operations.
type Service struct {
	users repository.UserRepository
	log   *zap.Logger
}

// NewService constructs the account service.
func NewService(users repository.UserRepository, log *zap.Logger) *Service {
	return &Service{users: users, log: log}
}

// Register creates a new customer with a hashed password, generated customer
// and account numbers, and a zero opening balance.
func (s *Service) Register(ctx context.Context, name, password string) (*model.User, error) {
	if name == "" {
		return nil, fmt.Errorf("validation: empty name")
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("validation: password shorter than %d characters", minPasswordLen)
	}
	if _, err := s.users.GetByName(ctx, name); err == nil {
		return nil, errs.ErrAlreadyExists
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		id, err := randomInRange(customerIDMin, customerIDMax)
		if err != nil {
			return nil, err
		}
		account, err := randomInRange(accountMin, accountMax)
		if err != nil {
			return nil, err
		}
		u := &model.User{
			ID:            id,
			AccountNumber: account,
			Name:          name,
			Bank:          defaultBank,
			PwdHash:       hash,
		}
		if err := s.users.Create(ctx, u); err != nil {
			if errors.Is(err, errs.ErrAlreadyExists) {
				// The violated constraint may be the name, not the generated
				// ids: a duplicate racing past the pre-check is permanent,
				// only id collisions are worth a retry.
				if _, nameErr := s.users.GetByName(ctx, name); nameErr == nil {
					return nil, errs.ErrAlreadyExists
				}
				lastErr = err
				continue
			}
			return nil, err
		}
		s.log.Info("customer registered",
			zap.Int64("user_id", u.ID), zap.Int64("account", u.AccountNumber))
		return u, nil
	}
	return nil, fmt.Errorf("generate unique identifiers: %w", lastErr)
}

// Profile returns the customer record for display (credential included for
// internal callers; the transport strips it).
func (s *Service) Profile(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateName changes the display name.
func (s *Service) UpdateName(ctx context.Context, userID int64, name string) error {
	if name == "" {
		return fmt.Errorf("validation: empty name")
	}
	return s.users.UpdateName(ctx, userID, name)
}

// ChangePassword verifies the current password before storing the new one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < minPasswordLen {
		return fmt.Errorf("validation: password shorter than %d characters", minPasswordLen)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := pkgcrypto.VerifyPassword(current, u.PwdHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return errs.ErrCredentialInvalid
	}
	hash, err := pkgcrypto.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// List returns all customers without credential material.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// randomInRange draws a uniform random int64 in [min, max].
func randomInRange(min, max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, err
	}
	return min + n.Int64(), nil
}
