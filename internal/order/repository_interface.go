package order

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// StockReserver performs the conditional stock decrement inside the
// checkout transaction.
type StockReserver interface {
	ReserveStock(ctx context.Context, tx sqlx.ExtContext, listingID, qty int) error
}

type Repository interface {
	Checkout(ctx context.Context, buyerID, cartID int, shippingAddress, paymentMethod string) (*Order, []Item, error)
	GetByID(ctx context.Context, orderID int) (*Order, error)
	SetPaid(ctx context.Context, orderID int) error
	UpdateStatus(ctx context.Context, orderID int, newStatus string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID int) ([]Order, error)
	ListBySeller(ctx context.Context, sellerID int) ([]Order, error)
	GetOrderItems(ctx context.Context, orderID int) ([]Item, error)
}
