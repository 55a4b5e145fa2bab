package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, farmerID int, req CreateListingRequest) (*Listing, error) {
	var l Listing
	err := r.db.GetContext(ctx, &l, `
		INSERT INTO listings (farmer_id, name, unit, unit_price_cents, quantity, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		RETURNING id, farmer_id, name, unit, unit_price_cents, quantity, units_sold, status, created_at, updated_at
	`, farmerID, req.Name, req.Unit, req.UnitPriceCents, req.Quantity)
	if err != nil {
		return nil, err
	}

	return &l, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Listing, error) {
	var l Listing
	err := r.db.GetContext(ctx, &l, `
		SELECT id, farmer_id, name, unit, unit_price_cents, quantity, units_sold, status, created_at, updated_at
		FROM listings
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	return &l, nil
}

func (r *repository) ListActive(ctx context.Context) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.SelectContext(ctx, &listings, `
		SELECT id, farmer_id, name, unit, unit_price_cents, quantity, units_sold, status, created_at, updated_at
		FROM listings
		WHERE status = 'active' AND quantity > 0
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}

	return listings, nil
}

func (r *repository) ListByFarmer(ctx context.Context, farmerID int) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.SelectContext(ctx, &listings, `
		SELECT id, farmer_id, name, unit, unit_price_cents, quantity, units_sold, status, created_at, updated_at
		FROM listings
		WHERE farmer_id = $1
		ORDER BY created_at DESC
	`, farmerID)
	if err != nil {
		return nil, err
	}

	return listings, nil
}

// ReserveStock decrements available quantity inside the caller's transaction.
// The WHERE clause carries the stock check, so two concurrent checkouts can
// never both take the same unit: the loser simply affects zero rows.
func (r *repository) ReserveStock(ctx context.Context, tx sqlx.ExtContext, listingID, qty int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE listings
		SET quantity = quantity - $1, units_sold = units_sold + $1, updated_at = NOW()
		WHERE id = $2 AND status = 'active' AND quantity >= $1
	`, qty, listingID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}
