package wallet

import "context"

type Repository interface {
	GetOrCreateWallet(ctx context.Context, farmerID int) (*Wallet, error)
	GetBalance(ctx context.Context, farmerID int) (int64, error)
	ListTransactions(ctx context.Context, farmerID int, filter TxFilter) ([]Transaction, error)
	TopUp(ctx context.Context, farmerID int, amountCents int64, method, idemKey string) (*Transaction, error)
	Withdraw(ctx context.Context, farmerID int, amountCents int64, destination, method string) (*Transaction, error)
	CompleteWithdrawal(ctx context.Context, txID int, ok bool) error
	Transfer(ctx context.Context, fromFarmer, toFarmer int, amountCents int64, txType, counterpartyRef, idemKey string) (*Transaction, error)
}
