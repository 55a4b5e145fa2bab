package catalog

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, farmerID int, req CreateListingRequest) (*Listing, error)
	GetByID(ctx context.Context, id int) (*Listing, error)
	ListActive(ctx context.Context) ([]Listing, error)
	ListByFarmer(ctx context.Context, farmerID int) ([]Listing, error)
	ReserveStock(ctx context.Context, tx sqlx.ExtContext, listingID, qty int) error
}
