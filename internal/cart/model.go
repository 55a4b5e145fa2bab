package cart

import "time"

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Cart is one buyer's in-progress basket with a single seller. At most one
// active cart exists per (buyer, seller) pair.
type Cart struct {
	ID        int       `db:"id" json:"id"`
	BuyerID   int       `db:"buyer_id" json:"buyer_id"`
	SellerID  int       `db:"seller_id" json:"seller_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Item carries the price snapshot taken when the listing entered the cart.
type Item struct {
	ID             int   `db:"id" json:"id"`
	CartID         int   `db:"cart_id" json:"cart_id"`
	ListingID      int   `db:"listing_id" json:"listing_id"`
	Quantity       int   `db:"quantity" json:"quantity"`
	UnitPriceCents int64 `db:"unit_price_cents" json:"unit_price_cents"`
}

type ItemDetail struct {
	Item
	ListingName    string `db:"listing_name" json:"listing_name"`
	Unit           string `db:"unit" json:"unit"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// View is computed on read; totals are never stored.
type View struct {
	CartID     int          `json:"cart_id"`
	SellerID   int          `json:"seller_id"`
	Items      []ItemDetail `json:"items"`
	TotalCents int64        `json:"total_cents"`
}

type AddItemRequest struct {
	ListingID int `json:"listing_id" binding:"required,min=1"`
	Quantity  int `json:"quantity" binding:"required,min=1"`
}

type AddItemResponse struct {
	CartID int `json:"cart_id"`
	ItemID int `json:"item_id"`
}
