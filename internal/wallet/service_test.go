package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockWalletRepo struct{ mock.Mock }

func (m *MockWalletRepo) GetOrCreateWallet(ctx context.Context, farmerID int) (*Wallet, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *MockWalletRepo) GetBalance(ctx context.Context, farmerID int) (int64, error) {
	args := m.Called(ctx, farmerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepo) ListTransactions(ctx context.Context, farmerID int, filter TxFilter) ([]Transaction, error) {
	args := m.Called(ctx, farmerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockWalletRepo) TopUp(ctx context.Context, farmerID int, amountCents int64, method, idemKey string) (*Transaction, error) {
	args := m.Called(ctx, farmerID, amountCents, method, idemKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockWalletRepo) Withdraw(ctx context.Context, farmerID int, amountCents int64, destination, method string) (*Transaction, error) {
	args := m.Called(ctx, farmerID, amountCents, destination, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockWalletRepo) CompleteWithdrawal(ctx context.Context, txID int, ok bool) error {
	return m.Called(ctx, txID, ok).Error(0)
}

func (m *MockWalletRepo) Transfer(ctx context.Context, fromFarmer, toFarmer int, amountCents int64, txType, counterpartyRef, idemKey string) (*Transaction, error) {
	args := m.Called(ctx, fromFarmer, toFarmer, amountCents, txType, counterpartyRef, idemKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

type MockQueue struct{ mock.Mock }

func (m *MockQueue) EnqueueWithdrawal(ctx context.Context, txID, farmerID int, amountCents int64, destination, method string) error {
	return m.Called(ctx, txID, farmerID, amountCents, destination, method).Error(0)
}

func TestService_Withdraw_QueuesConfirmation(t *testing.T) {
	repo := new(MockWalletRepo)
	queue := new(MockQueue)

	repo.On("Withdraw", mock.Anything, 1, int64(500), "+254700000001", "mpesa").
		Return(&Transaction{ID: 3, WalletID: 5, Type: TypeWithdraw, Direction: DirectionOut, AmountCents: 500, Status: StatusPending}, nil)
	queue.On("EnqueueWithdrawal", mock.Anything, 3, 1, int64(500), "+254700000001", "mpesa").Return(nil)

	svc := NewService(repo, queue)
	tx, err := svc.Withdraw(context.Background(), 1, 500, "+254700000001", "mpesa")

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)
	repo.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestService_Withdraw_QueueFailureDoesNotFailRequest(t *testing.T) {
	repo := new(MockWalletRepo)
	queue := new(MockQueue)

	repo.On("Withdraw", mock.Anything, 1, int64(500), "+254700000001", "mpesa").
		Return(&Transaction{ID: 3, Status: StatusPending}, nil)
	queue.On("EnqueueWithdrawal", mock.Anything, 3, 1, int64(500), "+254700000001", "mpesa").
		Return(errors.New("redis down"))

	svc := NewService(repo, queue)
	tx, err := svc.Withdraw(context.Background(), 1, 500, "+254700000001", "mpesa")

	// The reservation already committed; the pending row waits for reconciliation.
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)
}

func TestService_TransferPreview_DoesNotMutate(t *testing.T) {
	repo := new(MockWalletRepo)
	queue := new(MockQueue)

	repo.On("GetBalance", mock.Anything, 1).Return(int64(1000), nil)

	svc := NewService(repo, queue)
	quote, err := svc.TransferPreview(context.Background(), 1, 2, 200)

	assert.NoError(t, err)
	assert.Equal(t, int64(200), quote.AmountCents)
	assert.Equal(t, int64(800), quote.BalanceAfter)
	assert.Equal(t, 2, quote.Destination)
	repo.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_TransferPreview_InsufficientFunds(t *testing.T) {
	repo := new(MockWalletRepo)
	queue := new(MockQueue)

	repo.On("GetBalance", mock.Anything, 1).Return(int64(100), nil)

	svc := NewService(repo, queue)
	_, err := svc.TransferPreview(context.Background(), 1, 2, 200)

	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestService_Pay_UsesPaymentType(t *testing.T) {
	repo := new(MockWalletRepo)
	queue := new(MockQueue)

	repo.On("Transfer", mock.Anything, 1, 2, int64(5000), TypePayment, "ORD-123", "order-pay-9").
		Return(&Transaction{ID: 7, Type: TypePayment, Status: StatusCompleted}, nil)

	svc := NewService(repo, queue)
	tx, err := svc.Pay(context.Background(), 1, 2, 5000, "ORD-123", "order-pay-9")

	assert.NoError(t, err)
	assert.Equal(t, TypePayment, tx.Type)
	repo.AssertExpectations(t)
}
