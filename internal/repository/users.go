// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/centbank/facegate/internal/model"
)

// UserRepository provides CRUD access for bank customers.
type UserRepository interface {
	// Create inserts a new user with generated identifiers.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by customer number.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByAccount loads a user by account number.
	GetByAccount(ctx context.Context, account int64) (*model.User, error)
	// GetByName loads a user by display name (case-insensitive).
	GetByName(ctx context.Context, name string) (*model.User, error)
	// UpdateName changes the display name.
	UpdateName(ctx context.Context, id int64, name string) error
	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, pwdHash string) error
	// TouchLastLogin stamps a successful authentication.
	TouchLastLogin(ctx context.Context, id int64) error
	// List returns all users without credential material.
	List(ctx context.Context) ([]model.User, error)
}
