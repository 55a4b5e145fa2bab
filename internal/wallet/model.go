package wallet

import (
	"database/sql"
	"time"
)

const (
	TypeTopUp    = "topup"
	TypeWithdraw = "withdraw"
	TypeTransfer = "transfer"
	TypePayment  = "payment"

	DirectionIn  = "in"
	DirectionOut = "out"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Wallet holds the cached balance for one farmer. The balance is only ever
// mutated in the same transaction as the ledger row that explains the change.
type Wallet struct {
	ID           int       `db:"id" json:"id"`
	FarmerID     int       `db:"farmer_id" json:"farmer_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type Transaction struct {
	ID             int            `db:"id" json:"id"`
	WalletID       int            `db:"wallet_id" json:"wallet_id"`
	Type           string         `db:"type" json:"type"`
	Direction      string         `db:"direction" json:"direction"`
	AmountCents    int64          `db:"amount_cents" json:"amount_cents"`
	Counterparty   sql.NullString `db:"counterparty" json:"counterparty,omitempty"`
	Status         string         `db:"status" json:"status"`
	Method         sql.NullString `db:"method" json:"method,omitempty"`
	IdempotencyKey sql.NullString `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// TxFilter narrows ListTransactions. Zero values mean "no restriction".
type TxFilter struct {
	Type   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Quote is the non-mutating result of a transfer preview.
type Quote struct {
	Destination  int   `json:"destination"`
	AmountCents  int64 `json:"amount_cents"`
	BalanceAfter int64 `json:"balance_after_cents"`
}

type TopUpRequest struct {
	Account        string `json:"account" binding:"required"`
	AmountCents    int64  `json:"amount_cents" binding:"required,gt=0"`
	Method         string `json:"method" binding:"required"`
	PhoneNumber    string `json:"phone_number"`
	IdempotencyKey string `json:"idempotency_key"`
}

type WithdrawRequest struct {
	Account     string `json:"account" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Destination string `json:"destination" binding:"required"`
	Method      string `json:"method" binding:"required"`
}

type TransferRequest struct {
	Account     string `json:"account" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Confirm     bool   `json:"confirm"`
}
