package order

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// validTransitions is the seller-driven status machine. Delivered and
// cancelled are terminal.
var validTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
}

func canTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID              int       `db:"id" json:"id"`
	OrderNumber     string    `db:"order_number" json:"order_number"`
	BuyerID         int       `db:"buyer_id" json:"buyer_id"`
	SellerID        int       `db:"seller_id" json:"seller_id"`
	TotalCents      int64     `db:"total_cents" json:"total_cents"`
	Status          string    `db:"status" json:"status"`
	PaymentStatus   string    `db:"payment_status" json:"payment_status"`
	Settled         bool      `db:"settled" json:"-"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string    `db:"payment_method" json:"payment_method"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type Item struct {
	ID             int    `db:"id" json:"id"`
	OrderID        int    `db:"order_id" json:"order_id"`
	ListingID      int    `db:"listing_id" json:"listing_id"`
	Name           string `db:"name" json:"name"`
	Quantity       int    `db:"quantity" json:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents" json:"unit_price_cents"`
	LineTotalCents int64  `db:"line_total_cents" json:"line_total_cents"`
}

type CheckoutRequest struct {
	CartID          int    `json:"cart_id" binding:"required,gt=0"`
	ShippingAddress string `json:"shipping_address" binding:"required"`
	PaymentMethod   string `json:"payment_method" binding:"required,oneof=wallet mpesa"`
}

type CheckoutResponse struct {
	OrderID     int    `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TotalCents  int64  `json:"total_cents"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed shipped delivered cancelled"`
}
