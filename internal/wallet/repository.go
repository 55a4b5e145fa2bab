package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrNotPending        = errors.New("transaction is not pending")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *repository) GetOrCreateWallet(ctx context.Context, farmerID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT * FROM wallets WHERE farmer_id = $1`, farmerID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO wallets (farmer_id)
		VALUES ($1)
		ON CONFLICT (farmer_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, farmer_id, balance_cents, created_at, updated_at
	`, farmerID).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// GetBalance never errors for an unknown farmer: a wallet that was never
// credited simply holds zero.
func (r *repository) GetBalance(ctx context.Context, farmerID int) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance,
		`SELECT balance_cents FROM wallets WHERE farmer_id = $1`, farmerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *repository) ListTransactions(ctx context.Context, farmerID int, filter TxFilter) ([]Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	query := `
		SELECT t.id, t.wallet_id, t.type, t.direction, t.amount_cents,
		       t.counterparty, t.status, t.method, t.idempotency_key, t.created_at
		FROM wallet_transactions t
		JOIN wallets w ON t.wallet_id = w.id
		WHERE w.farmer_id = $1`
	args := []interface{}{farmerID}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND t.type = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND t.created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND t.created_at <= $%d", len(args))
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY t.created_at DESC, t.id DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	txs := []Transaction{}
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, err
	}
	return txs, nil
}

// lockWallet loads a farmer's wallet FOR UPDATE, creating it when create is
// set. Absent wallet without create returns ErrInsufficientFunds since the
// balance is necessarily zero.
func lockWallet(ctx context.Context, tx *sqlx.Tx, farmerID int, create bool) (*Wallet, error) {
	var w Wallet
	err := tx.QueryRowxContext(ctx, `
		SELECT id, farmer_id, balance_cents, created_at, updated_at
		FROM wallets
		WHERE farmer_id = $1
		FOR UPDATE
	`, farmerID).StructScan(&w)
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if !create {
		return nil, ErrInsufficientFunds
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO wallets (farmer_id)
		VALUES ($1)
		RETURNING id, farmer_id, balance_cents, created_at, updated_at
	`, farmerID).StructScan(&w)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func setBalance(ctx context.Context, tx *sqlx.Tx, walletID int, balanceCents int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2`,
		balanceCents, walletID,
	)
	return err
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, walletID int, txType, direction string, amountCents int64, counterparty, status, method, idemKey string) (*Transaction, error) {
	var t Transaction
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO wallet_transactions (wallet_id, type, direction, amount_cents, counterparty, status, method, idempotency_key)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''))
		RETURNING id, wallet_id, type, direction, amount_cents, counterparty, status, method, idempotency_key, created_at
	`, walletID, txType, direction, amountCents, counterparty, status, method, idemKey).StructScan(&t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) getByIdempotencyKey(ctx context.Context, idemKey string) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT id, wallet_id, type, direction, amount_cents, counterparty, status, method, idempotency_key, created_at
		FROM wallet_transactions
		WHERE idempotency_key = $1
	`, idemKey)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) TopUp(ctx context.Context, farmerID int, amountCents int64, method, idemKey string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	if idemKey != "" {
		if existing, err := r.getByIdempotencyKey(ctx, idemKey); err == nil {
			return existing, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockWallet(ctx, tx, farmerID, true)
	if err != nil {
		return nil, err
	}

	if err := setBalance(ctx, tx, w.ID, w.BalanceCents+amountCents); err != nil {
		return nil, err
	}

	t, err := insertTransaction(ctx, tx, w.ID, TypeTopUp, DirectionIn, amountCents, "", StatusCompleted, method, idemKey)
	if err != nil {
		// Two concurrent submissions with the same token: the loser replays
		// the winner's result instead of double-crediting.
		if isUniqueViolation(err) && idemKey != "" {
			tx.Rollback()
			return r.getByIdempotencyKey(ctx, idemKey)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// Withdraw reserves funds optimistically: the balance drops and a pending out
// row is written before any external confirmation arrives.
func (r *repository) Withdraw(ctx context.Context, farmerID int, amountCents int64, destination, method string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockWallet(ctx, tx, farmerID, false)
	if err != nil {
		return nil, err
	}

	if w.BalanceCents < amountCents {
		return nil, ErrInsufficientFunds
	}

	if err := setBalance(ctx, tx, w.ID, w.BalanceCents-amountCents); err != nil {
		return nil, err
	}

	t, err := insertTransaction(ctx, tx, w.ID, TypeWithdraw, DirectionOut, amountCents, destination, StatusPending, method, "")
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// CompleteWithdrawal flips a pending withdrawal to completed, or to failed
// with the reserved funds returned to the wallet.
func (r *repository) CompleteWithdrawal(ctx context.Context, txID int, ok bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	newStatus := StatusCompleted
	if !ok {
		newStatus = StatusFailed
	}

	var t Transaction
	err = tx.QueryRowxContext(ctx, `
		UPDATE wallet_transactions
		SET status = $1
		WHERE id = $2 AND type = $3 AND status = $4
		RETURNING id, wallet_id, type, direction, amount_cents, counterparty, status, method, idempotency_key, created_at
	`, newStatus, txID, TypeWithdraw, StatusPending).StructScan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotPending
		}
		return err
	}

	if !ok {
		_, err = tx.ExecContext(ctx, `
			UPDATE wallets SET balance_cents = balance_cents + $1, updated_at = NOW() WHERE id = $2
		`, t.AmountCents, t.WalletID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Transfer moves funds between two farmers: two ledger rows and two balance
// updates in one transaction. Wallets are locked in ascending farmer order so
// two opposing transfers cannot deadlock.
func (r *repository) Transfer(ctx context.Context, fromFarmer, toFarmer int, amountCents int64, txType, counterpartyRef, idemKey string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if fromFarmer == toFarmer {
		return nil, errors.New("cannot transfer to the same account")
	}

	if idemKey != "" {
		if existing, err := r.getByIdempotencyKey(ctx, idemKey); err == nil {
			return existing, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Recipient wallet may not exist yet; create it before taking locks so
	// lock acquisition stays strictly ordered.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (farmer_id) VALUES ($1) ON CONFLICT (farmer_id) DO NOTHING`,
		toFarmer,
	); err != nil {
		return nil, err
	}

	first, second := fromFarmer, toFarmer
	if first > second {
		first, second = second, first
	}

	wallets := map[int]*Wallet{}
	for _, farmer := range []int{first, second} {
		w, err := lockWallet(ctx, tx, farmer, false)
		if err != nil {
			return nil, err
		}
		wallets[farmer] = w
	}

	sender, recipient := wallets[fromFarmer], wallets[toFarmer]
	if sender.BalanceCents < amountCents {
		return nil, ErrInsufficientFunds
	}

	if err := setBalance(ctx, tx, sender.ID, sender.BalanceCents-amountCents); err != nil {
		return nil, err
	}
	if err := setBalance(ctx, tx, recipient.ID, recipient.BalanceCents+amountCents); err != nil {
		return nil, err
	}

	outRef := counterpartyRef
	if outRef == "" {
		outRef = strconv.Itoa(toFarmer)
	}

	outTx, err := insertTransaction(ctx, tx, sender.ID, txType, DirectionOut, amountCents, outRef, StatusCompleted, "", idemKey)
	if err != nil {
		if isUniqueViolation(err) && idemKey != "" {
			tx.Rollback()
			return r.getByIdempotencyKey(ctx, idemKey)
		}
		return nil, err
	}

	if _, err := insertTransaction(ctx, tx, recipient.ID, txType, DirectionIn, amountCents, strconv.Itoa(fromFarmer), StatusCompleted, "", ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return outTx, nil
}
