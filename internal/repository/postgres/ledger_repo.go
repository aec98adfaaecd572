package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

// LedgerRepo implements LedgerRepository using PostgreSQL. Balance mutations
// and their transaction-log entries commit atomically; withdrawals guard the
// balance with a conditional UPDATE so concurrent debits cannot overdraw.
type LedgerRepo struct{ db *DB }

// NewLedgerRepo constructs a ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Balance returns the current balance in cents.
func (r *LedgerRepo) Balance(ctx context.Context, userID int64) (int64, error) {
	const q = `SELECT balance FROM users WHERE id=$1`
	var bal int64
	if err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&bal); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, errs.ErrNotFound
	}
	return bal, nil
}

const insertTx = `
INSERT INTO transactions (id, user_id, kind, amount, description)
VALUES ($1,$2,$3,$4,$5)`

// Deposit credits the account and logs the entry.
func (r *LedgerRepo) Deposit(ctx context.Context, userID int64, amount int64, description string) (bal int64, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	const upd = `UPDATE users SET balance = balance + $2 WHERE id=$1 RETURNING balance`
	if err = tx.QueryRow(ctx, upd, userID, amount).Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	if err = r.logEntry(ctx, tx, userID, model.TxDeposit, amount, description); err != nil {
		return 0, err
	}
	return bal, nil
}

// Withdraw debits the account if funds suffice and logs the entry.
func (r *LedgerRepo) Withdraw(ctx context.Context, userID int64, amount int64, description string) (bal int64, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	const upd = `
UPDATE users SET balance = balance - $2
WHERE id=$1 AND balance >= $2
RETURNING balance`
	if err = tx.QueryRow(ctx, upd, userID, amount).Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the user is unknown or the balance is short; decide which.
			if _, lookupErr := r.Balance(ctx, userID); errors.Is(lookupErr, errs.ErrNotFound) {
				return 0, errs.ErrNotFound
			}
			return 0, errs.ErrInsufficientFunds
		}
		return 0, err
	}
	if err = r.logEntry(ctx, tx, userID, model.TxWithdraw, amount, description); err != nil {
		return 0, err
	}
	return bal, nil
}

// Transfer moves funds to the receiver's account number, logging one entry
// per side.
func (r *LedgerRepo) Transfer(ctx context.Context, fromUserID, toAccount int64, amount int64) (bal int64, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	var toUserID int64
	const sel = `SELECT id FROM users WHERE account_number=$1 FOR UPDATE`
	if err = tx.QueryRow(ctx, sel, toAccount).Scan(&toUserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}

	const debit = `
UPDATE users SET balance = balance - $2
WHERE id=$1 AND balance >= $2
RETURNING balance`
	if err = tx.QueryRow(ctx, debit, fromUserID, amount).Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrInsufficientFunds
		}
		return 0, err
	}
	const credit = `UPDATE users SET balance = balance + $2 WHERE id=$1`
	if _, err = tx.Exec(ctx, credit, toUserID, amount); err != nil {
		return 0, err
	}

	if err = r.logEntry(ctx, tx, fromUserID, model.TxTransfer, amount,
		fmt.Sprintf("Transfer to %d", toAccount)); err != nil {
		return 0, err
	}
	if err = r.logEntry(ctx, tx, toUserID, model.TxDeposit, amount,
		fmt.Sprintf("Received from %d", fromUserID)); err != nil {
		return 0, err
	}
	return bal, nil
}

// History returns the most recent entries, newest first.
func (r *LedgerRepo) History(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	const q = `
SELECT id, user_id, kind, amount, description, created_at
FROM transactions WHERE user_id=$1
ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = model.TxKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) logEntry(ctx context.Context, tx pgx.Tx, userID int64, kind model.TxKind, amount int64, description string) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertTx, id, userID, string(kind), amount, description)
	return err
}
