package catalog

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Listing is one unit of produce offered for sale: a live price and the
// quantity still available. Quantity is only ever decremented at checkout.
type Listing struct {
	ID             int       `db:"id" json:"id"`
	FarmerID       int       `db:"farmer_id" json:"farmer_id"`
	Name           string    `db:"name" json:"name"`
	Unit           string    `db:"unit" json:"unit"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitsSold      int       `db:"units_sold" json:"units_sold"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type CreateListingRequest struct {
	Name           string `json:"name" binding:"required"`
	Unit           string `json:"unit" binding:"required"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"required,gt=0"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
}
