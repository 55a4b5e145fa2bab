package wallet

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var (
	walletCols = []string{"id", "farmer_id", "balance_cents", "created_at", "updated_at"}
	txCols     = []string{"id", "wallet_id", "type", "direction", "amount_cents", "counterparty", "status", "method", "idempotency_key", "created_at"}
)

func setupWalletMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func walletRow(id, farmerID int, balance int64) *sqlmock.Rows {
	return sqlmock.NewRows(walletCols).AddRow(id, farmerID, balance, time.Now(), time.Now())
}

func txRow(id, walletID int, txType, direction string, amount int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(txCols).
		AddRow(id, walletID, txType, direction, amount, nil, status, nil, nil, time.Now())
}

func TestGetBalance_NoWallet(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance_cents FROM wallets WHERE farmer_id = $1")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	balance, err := repo.GetBalance(context.Background(), 99)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

func TestTopUp_Success(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(10).
		WillReturnRows(walletRow(5, 10, 1000))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(1500), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(5, TypeTopUp, DirectionIn, int64(500), "", StatusCompleted, "mpesa", "").
		WillReturnRows(txRow(1, 5, TypeTopUp, DirectionIn, 500, StatusCompleted))
	mock.ExpectCommit()

	tx, err := repo.TopUp(context.Background(), 10, 500, "mpesa", "")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, tx.Status)
	require.Equal(t, DirectionIn, tx.Direction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopUp_CreatesWalletLazily(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(11).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets (farmer_id) VALUES ($1) RETURNING id, farmer_id, balance_cents, created_at, updated_at")).
		WithArgs(11).
		WillReturnRows(walletRow(6, 11, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(500), 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(6, TypeTopUp, DirectionIn, int64(500), "", StatusCompleted, "mpesa", "").
		WillReturnRows(txRow(2, 6, TypeTopUp, DirectionIn, 500, StatusCompleted))
	mock.ExpectCommit()

	_, err := repo.TopUp(context.Background(), 11, 500, "mpesa", "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopUp_RejectsNonPositiveAmount(t *testing.T) {
	repo, _, close := setupWalletMock(t)
	defer close()

	_, err := repo.TopUp(context.Background(), 10, 0, "mpesa", "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = repo.TopUp(context.Background(), 10, -100, "mpesa", "")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTopUp_IdempotentReplay(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	// The stored row is returned without opening a transaction: no new credit.
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallet_transactions WHERE idempotency_key = $1")).
		WithArgs("tok-1").
		WillReturnRows(txRow(42, 5, TypeTopUp, DirectionIn, 500, StatusCompleted))

	tx, err := repo.TopUp(context.Background(), 10, 500, "mpesa", "tok-1")
	require.NoError(t, err)
	require.Equal(t, 42, tx.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(10).
		WillReturnRows(walletRow(5, 10, 100))
	mock.ExpectRollback()

	_, err := repo.Withdraw(context.Background(), 10, 101, "+254700000001", "mpesa")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdraw_ExactBalanceLeavesZero(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(10).
		WillReturnRows(walletRow(5, 10, 500))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(0), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(5, TypeWithdraw, DirectionOut, int64(500), "+254700000001", StatusPending, "mpesa", "").
		WillReturnRows(txRow(3, 5, TypeWithdraw, DirectionOut, 500, StatusPending))
	mock.ExpectCommit()

	tx, err := repo.Withdraw(context.Background(), 10, 500, "+254700000001", "mpesa")
	require.NoError(t, err)
	require.Equal(t, StatusPending, tx.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdraw_NoWalletMeansNoFunds(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(77).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Withdraw(context.Background(), 77, 100, "+254700000001", "mpesa")
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestCompleteWithdrawal_FailureRefunds(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE wallet_transactions SET status = $1 WHERE id = $2 AND type = $3 AND status = $4")).
		WithArgs(StatusFailed, 3, TypeWithdraw, StatusPending).
		WillReturnRows(txRow(3, 5, TypeWithdraw, DirectionOut, 500, StatusFailed))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = balance_cents + $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(500), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CompleteWithdrawal(context.Background(), 3, false)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWithdrawal_AlreadySettled(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE wallet_transactions SET status = $1 WHERE id = $2 AND type = $3 AND status = $4")).
		WithArgs(StatusCompleted, 3, TypeWithdraw, StatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.CompleteWithdrawal(context.Background(), 3, true)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestTransfer_TwoRowsOneTransaction(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets (farmer_id) VALUES ($1) ON CONFLICT (farmer_id) DO NOTHING")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRow(5, 1, 1000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(walletRow(6, 2, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(800), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(200), 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(5, TypeTransfer, DirectionOut, int64(200), "2", StatusCompleted, "", "").
		WillReturnRows(txRow(10, 5, TypeTransfer, DirectionOut, 200, StatusCompleted))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(6, TypeTransfer, DirectionIn, int64(200), "1", StatusCompleted, "", "").
		WillReturnRows(txRow(11, 6, TypeTransfer, DirectionIn, 200, StatusCompleted))
	mock.ExpectCommit()

	tx, err := repo.Transfer(context.Background(), 1, 2, 200, TypeTransfer, "", "")
	require.NoError(t, err)
	require.Equal(t, DirectionOut, tx.Direction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_InsufficientFundsAbortsBeforeWrites(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets (farmer_id) VALUES ($1) ON CONFLICT (farmer_id) DO NOTHING")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRow(5, 1, 100))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, farmer_id, balance_cents, created_at, updated_at FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(walletRow(6, 2, 0))
	mock.ExpectRollback()

	_, err := repo.Transfer(context.Background(), 1, 2, 200, TypeTransfer, "", "")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_SameAccountRejected(t *testing.T) {
	repo, _, close := setupWalletMock(t)
	defer close()

	_, err := repo.Transfer(context.Background(), 1, 1, 200, TypeTransfer, "", "")
	require.Error(t, err)
}

func TestTransfer_LocksInAscendingOrder(t *testing.T) {
	repo, mock, close := setupWalletMock(t)
	defer close()

	// Idempotency pre-check runs before the transaction opens.
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallet_transactions WHERE idempotency_key = $1")).
		WithArgs("pay-1").
		WillReturnError(sql.ErrNoRows)

	// Sender id 9 > recipient id 3: recipient locked first.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets (farmer_id) VALUES ($1) ON CONFLICT (farmer_id) DO NOTHING")).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(walletRow(6, 3, 50))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE farmer_id = $1 FOR UPDATE")).
		WithArgs(9).
		WillReturnRows(walletRow(5, 9, 1000))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(800), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(250), 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(5, TypePayment, DirectionOut, int64(200), "ORD-1", StatusCompleted, "", "pay-1").
		WillReturnRows(txRow(10, 5, TypePayment, DirectionOut, 200, StatusCompleted))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(6, TypePayment, DirectionIn, int64(200), "9", StatusCompleted, "", "").
		WillReturnRows(txRow(11, 6, TypePayment, DirectionIn, 200, StatusCompleted))
	mock.ExpectCommit()

	_, err := repo.Transfer(context.Background(), 9, 3, 200, TypePayment, "ORD-1", "pay-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
