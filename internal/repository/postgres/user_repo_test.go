package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func userRow(u *model.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "account_number", "name", "bank", "pwd_hash", "balance", "created_at", "last_login_at"}).
		AddRow(u.ID, u.AccountNumber, u.Name, u.Bank, u.PwdHash, u.Balance, time.Now(), nil)
}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{ID: 12345, AccountNumber: 1000000001, Name: "Alice", Bank: "CENT", PwdHash: "h"}

	mock.ExpectExec(`INSERT INTO users \(id, account_number, name, bank, pwd_hash, balance\)`).
		WithArgs(u.ID, u.AccountNumber, u.Name, u.Bank, u.PwdHash).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users \(id, account_number, name, bank, pwd_hash, balance\)`).
		WithArgs(u.ID, u.AccountNumber, u.Name, u.Bank, u.PwdHash).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{ID: 12345, AccountNumber: 1000000001, Name: "Alice", Bank: "CENT", PwdHash: "h", Balance: 500}

	mock.ExpectQuery(`SELECT id, account_number, name, bank, pwd_hash, balance, created_at, last_login_at FROM users WHERE id=\$1`).
		WithArgs(u.ID).
		WillReturnRows(userRow(u))
	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, int64(500), got.Balance)
	require.Nil(t, got.LastLoginAt)

	mock.ExpectQuery(`SELECT id, account_number, name, bank, pwd_hash, balance, created_at, last_login_at FROM users WHERE id=\$1`).
		WithArgs(int64(99999)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, 99999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByName_CaseInsensitive(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{ID: 12345, AccountNumber: 1000000001, Name: "Alice", Bank: "CENT", PwdHash: "h"}

	mock.ExpectQuery(`FROM users WHERE lower\(name\)=lower\(\$1\)`).
		WithArgs("ALICE").
		WillReturnRows(userRow(u))
	got, err := r.GetByName(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)
}

func TestUserRepo_GetByAccount(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{ID: 12345, AccountNumber: 1000000001, Name: "Alice", Bank: "CENT", PwdHash: "h"}

	mock.ExpectQuery(`FROM users WHERE account_number=\$1`).
		WithArgs(u.AccountNumber).
		WillReturnRows(userRow(u))
	got, err := r.GetByAccount(ctx, u.AccountNumber)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestUserRepo_UpdateName(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE users SET name=\$2 WHERE id=\$1`).
		WithArgs(int64(12345), "Alicia").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateName(ctx, 12345, "Alicia"))

	mock.ExpectExec(`UPDATE users SET name=\$2 WHERE id=\$1`).
		WithArgs(int64(99999), "Nobody").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.UpdateName(ctx, 99999, "Nobody"), errs.ErrNotFound)
}

func TestUserRepo_UpdatePassword(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE users SET pwd_hash=\$2 WHERE id=\$1`).
		WithArgs(int64(12345), "newhash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdatePassword(ctx, 12345, "newhash"))
}

func TestUserRepo_TouchLastLogin(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE users SET last_login_at=now\(\) WHERE id=\$1`).
		WithArgs(int64(12345)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.TouchLastLogin(ctx, 12345))

	mock.ExpectExec(`UPDATE users SET last_login_at=now\(\) WHERE id=\$1`).
		WithArgs(int64(99999)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.TouchLastLogin(ctx, 99999), errs.ErrNotFound)
}

func TestUserRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	rows := pgxmock.NewRows([]string{"id", "account_number", "name", "bank", "balance", "created_at", "last_login_at"}).
		AddRow(int64(12345), int64(1000000001), "Alice", "CENT", int64(500), time.Now(), nil).
		AddRow(int64(54321), int64(1000000002), "Bob", "CENT", int64(0), time.Now(), nil)
	mock.ExpectQuery(`SELECT id, account_number, name, bank, balance, created_at, last_login_at`).
		WillReturnRows(rows)

	users, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "Alice", users[0].Name)
	require.Empty(t, users[0].PwdHash)
}
