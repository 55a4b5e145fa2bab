package wallet

import (
	"context"

	"farmfuzion/internal/logger"
	"farmfuzion/internal/metrics"
)

// WithdrawalQueue hands a reserved withdrawal to the asynchronous payout
// confirmer. Implemented by the payout package.
type WithdrawalQueue interface {
	EnqueueWithdrawal(ctx context.Context, txID, farmerID int, amountCents int64, destination, method string) error
}

type Service interface {
	GetBalance(ctx context.Context, farmerID int) (int64, error)
	ListTransactions(ctx context.Context, farmerID int, filter TxFilter) ([]Transaction, error)
	TopUp(ctx context.Context, farmerID int, amountCents int64, method, idemKey string) (*Transaction, error)
	Withdraw(ctx context.Context, farmerID int, amountCents int64, destination, method string) (*Transaction, error)
	TransferPreview(ctx context.Context, fromFarmer, toFarmer int, amountCents int64) (*Quote, error)
	TransferExecute(ctx context.Context, fromFarmer, toFarmer int, amountCents int64) (*Transaction, error)
	Pay(ctx context.Context, payer, payee int, amountCents int64, reference, idemKey string) (*Transaction, error)
}

type service struct {
	repo  Repository
	queue WithdrawalQueue
}

func NewService(repo Repository, queue WithdrawalQueue) Service {
	return &service{repo: repo, queue: queue}
}

func (s *service) GetBalance(ctx context.Context, farmerID int) (int64, error) {
	return s.repo.GetBalance(ctx, farmerID)
}

func (s *service) ListTransactions(ctx context.Context, farmerID int, filter TxFilter) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, farmerID, filter)
}

func (s *service) TopUp(ctx context.Context, farmerID int, amountCents int64, method, idemKey string) (*Transaction, error) {
	t, err := s.repo.TopUp(ctx, farmerID, amountCents, method, idemKey)
	if err != nil {
		return nil, err
	}

	metrics.RecordLedgerTransaction(TypeTopUp, t.Status)
	return t, nil
}

func (s *service) Withdraw(ctx context.Context, farmerID int, amountCents int64, destination, method string) (*Transaction, error) {
	t, err := s.repo.Withdraw(ctx, farmerID, amountCents, destination, method)
	if err != nil {
		return nil, err
	}

	metrics.RecordLedgerTransaction(TypeWithdraw, t.Status)

	// Funds are already reserved; if the queue is down the row stays pending
	// until operational reconciliation picks it up.
	if err := s.queue.EnqueueWithdrawal(ctx, t.ID, farmerID, amountCents, destination, method); err != nil {
		logger.Errorf("failed to queue withdrawal confirmation tx=%d: %v", t.ID, err)
	}

	return t, nil
}

func (s *service) TransferPreview(ctx context.Context, fromFarmer, toFarmer int, amountCents int64) (*Quote, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	balance, err := s.repo.GetBalance(ctx, fromFarmer)
	if err != nil {
		return nil, err
	}
	if balance < amountCents {
		return nil, ErrInsufficientFunds
	}

	return &Quote{
		Destination:  toFarmer,
		AmountCents:  amountCents,
		BalanceAfter: balance - amountCents,
	}, nil
}

func (s *service) TransferExecute(ctx context.Context, fromFarmer, toFarmer int, amountCents int64) (*Transaction, error) {
	t, err := s.repo.Transfer(ctx, fromFarmer, toFarmer, amountCents, TypeTransfer, "", "")
	if err != nil {
		return nil, err
	}

	metrics.RecordLedgerTransaction(TypeTransfer, t.Status)
	return t, nil
}

// Pay settles an order through the ledger. Same mechanics as an executed
// transfer; the type and the order reference record the caller's intent.
func (s *service) Pay(ctx context.Context, payer, payee int, amountCents int64, reference, idemKey string) (*Transaction, error) {
	t, err := s.repo.Transfer(ctx, payer, payee, amountCents, TypePayment, reference, idemKey)
	if err != nil {
		return nil, err
	}

	metrics.RecordLedgerTransaction(TypePayment, t.Status)
	return t, nil
}
