package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrItemNotFound = errors.New("cart item not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreateCart(ctx context.Context, buyerID, sellerID int) (*Cart, error) {
	var c Cart
	err := r.db.GetContext(ctx, &c, `
		SELECT id, buyer_id, seller_id, status, created_at, updated_at
		FROM carts
		WHERE buyer_id = $1 AND seller_id = $2 AND status = 'active'
	`, buyerID, sellerID)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.GetContext(ctx, &c, `
		INSERT INTO carts (buyer_id, seller_id, status)
		VALUES ($1, $2, 'active')
		RETURNING id, buyer_id, seller_id, status, created_at, updated_at
	`, buyerID, sellerID)
	if err != nil {
		// The partial unique index caught a concurrent create; take the
		// winner's cart.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = r.db.GetContext(ctx, &c, `
				SELECT id, buyer_id, seller_id, status, created_at, updated_at
				FROM carts
				WHERE buyer_id = $1 AND seller_id = $2 AND status = 'active'
			`, buyerID, sellerID)
			if err != nil {
				return nil, err
			}
			return &c, nil
		}
		return nil, err
	}

	return &c, nil
}

func (r *repository) GetActiveCarts(ctx context.Context, buyerID int) ([]Cart, error) {
	carts := []Cart{}
	err := r.db.SelectContext(ctx, &carts, `
		SELECT id, buyer_id, seller_id, status, created_at, updated_at
		FROM carts
		WHERE buyer_id = $1 AND status = 'active'
		ORDER BY updated_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	return carts, nil
}

func (r *repository) GetItems(ctx context.Context, cartID int) ([]ItemDetail, error) {
	items := []ItemDetail{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT ci.id, ci.cart_id, ci.listing_id, ci.quantity, ci.unit_price_cents,
		       l.name AS listing_name, l.unit
		FROM cart_items ci
		JOIN listings l ON ci.listing_id = l.id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`, cartID)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].LineTotalCents = int64(items[i].Quantity) * items[i].UnitPriceCents
	}
	return items, nil
}

func (r *repository) GetItemQuantity(ctx context.Context, cartID, listingID int) (int, error) {
	var qty int
	err := r.db.GetContext(ctx, &qty, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM cart_items
		WHERE cart_id = $1 AND listing_id = $2
	`, cartID, listingID)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// UpsertItem merges an existing line by summing quantity and re-snapshotting
// the unit price to the listing's current price.
func (r *repository) UpsertItem(ctx context.Context, cartID, listingID, quantity int, unitPriceCents int64) (*Item, error) {
	var item Item
	err := r.db.GetContext(ctx, &item, `
		INSERT INTO cart_items (cart_id, listing_id, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, listing_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
		    unit_price_cents = EXCLUDED.unit_price_cents
		RETURNING id, cart_id, listing_id, quantity, unit_price_cents
	`, cartID, listingID, quantity, unitPriceCents)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// DeleteItemOwned removes the line only when it is reachable through an
// active cart owned by the buyer.
func (r *repository) DeleteItemOwned(ctx context.Context, itemID, buyerID int) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.id = $1 AND ci.cart_id = c.id AND c.buyer_id = $2 AND c.status = 'active'
	`, itemID, buyerID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}
