package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmfuzion/internal/catalog"
	"farmfuzion/internal/logger"
	"farmfuzion/internal/metrics"
	"farmfuzion/internal/wallet"
)

var (
	ErrNotOwner          = errors.New("order does not belong to caller")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPaymentTimeout    = errors.New("payment timed out")
)

// Ledger is the slice of the wallet service that order payment needs.
type Ledger interface {
	Pay(ctx context.Context, payer, payee int, amountCents int64, reference, idemKey string) (*wallet.Transaction, error)
}

type Service interface {
	Checkout(ctx context.Context, buyerID, cartID int, shippingAddress, paymentMethod string) (*Order, []Item, error)
	PayOrder(ctx context.Context, payerID, orderID int) (*Order, error)
	UpdateStatus(ctx context.Context, sellerID, orderID int, newStatus string) (*Order, error)
	ListForBuyer(ctx context.Context, buyerID int) ([]Order, error)
	ListForSeller(ctx context.Context, sellerID int) ([]Order, error)
	GetItems(ctx context.Context, orderID int) ([]Item, error)
}

type service struct {
	repo           Repository
	ledger         Ledger
	paymentTimeout time.Duration
}

func NewService(repo Repository, ledger Ledger, paymentTimeout time.Duration) Service {
	return &service{repo: repo, ledger: ledger, paymentTimeout: paymentTimeout}
}

func (s *service) Checkout(ctx context.Context, buyerID, cartID int, shippingAddress, paymentMethod string) (*Order, []Item, error) {
	o, items, err := s.repo.Checkout(ctx, buyerID, cartID, shippingAddress, paymentMethod)
	if err != nil {
		if errors.Is(err, catalog.ErrInsufficientStock) {
			metrics.RecordCheckout("insufficient_stock")
			metrics.RecordStockReservationFailure()
		} else {
			metrics.RecordCheckout("error")
		}
		return nil, nil, err
	}

	metrics.RecordCheckout("success")
	logger.Infof("checkout: order %s created for buyer %d, total %d cents", o.OrderNumber, buyerID, o.TotalCents)
	return o, items, nil
}

// PayOrder settles a pending order through the ledger. The ledger call is
// bounded by the payment timeout; on expiry the order stays pending and the
// caller may retry with the same idempotency token.
func (s *service) PayOrder(ctx context.Context, payerID, orderID int) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != payerID {
		return nil, ErrNotOwner
	}
	if o.PaymentStatus != PaymentPending {
		return nil, ErrNotPending
	}

	payCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()

	idemKey := fmt.Sprintf("order-pay-%d", o.ID)
	_, err = s.ledger.Pay(payCtx, o.BuyerID, o.SellerID, o.TotalCents, o.OrderNumber, idemKey)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warnf("pay order %s: ledger timed out after %s", o.OrderNumber, s.paymentTimeout)
			return nil, ErrPaymentTimeout
		}
		return nil, err
	}

	if err := s.repo.SetPaid(ctx, o.ID); err != nil {
		return nil, err
	}

	metrics.RecordOrderPaid()
	logger.Infof("order %s paid by farmer %d", o.OrderNumber, payerID)

	return s.repo.GetByID(ctx, o.ID)
}

func (s *service) UpdateStatus(ctx context.Context, sellerID, orderID int, newStatus string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SellerID != sellerID {
		return nil, ErrNotOwner
	}
	if o.Status == newStatus {
		return o, nil
	}
	if !canTransition(o.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	return s.repo.UpdateStatus(ctx, orderID, newStatus)
}

func (s *service) ListForBuyer(ctx context.Context, buyerID int) ([]Order, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

func (s *service) ListForSeller(ctx context.Context, sellerID int) ([]Order, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

func (s *service) GetItems(ctx context.Context, orderID int) ([]Item, error) {
	return s.repo.GetOrderItems(ctx, orderID)
}
