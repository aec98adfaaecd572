package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, account_number, name, bank, pwd_hash, balance, created_at, last_login_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.AccountNumber, &u.Name, &u.Bank, &u.PwdHash, &u.Balance, &u.CreatedAt, &u.LastLoginAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// Create inserts a new customer row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, account_number, name, bank, pwd_hash, balance)
VALUES ($1, $2, $3, $4, $5, 0)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.AccountNumber, u.Name, u.Bank, u.PwdHash)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a customer by customer number.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByAccount selects a customer by account number.
func (r *UserRepo) GetByAccount(ctx context.Context, account int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE account_number=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, account))
}

// GetByName selects a customer by display name, case-insensitively.
func (r *UserRepo) GetByName(ctx context.Context, name string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(name)=lower($1)`
	return scanUser(r.db.Pool.QueryRow(ctx, q, name))
}

// UpdateName changes the display name.
func (r *UserRepo) UpdateName(ctx context.Context, id int64, name string) error {
	const q = `UPDATE users SET name=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored credential.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, pwdHash string) error {
	const q = `UPDATE users SET pwd_hash=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, pwdHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// TouchLastLogin stamps a successful authentication.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	const q = `UPDATE users SET last_login_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// List returns all customers ordered by creation time. Credential material is
// not selected.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	const q = `
SELECT id, account_number, name, bank, balance, created_at, last_login_at
FROM users ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.AccountNumber, &u.Name, &u.Bank, &u.Balance, &u.CreatedAt, &u.LastLoginAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
