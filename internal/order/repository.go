package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrCartNotFound  = errors.New("cart not found")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrNotPending    = errors.New("order is not pending payment")
)

// orderNumberRetries bounds regeneration when the unique constraint on
// order_number trips.
const orderNumberRetries = 3

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

type repository struct {
	db             *sqlx.DB
	stock          StockReserver
	newOrderNumber func() string
}

func NewRepository(db *sqlx.DB, stock StockReserver) Repository {
	return &repository{db: db, stock: stock, newOrderNumber: generateOrderNumber}
}

// NewRepositoryWithGenerator lets tests control order-number generation.
func NewRepositoryWithGenerator(db *sqlx.DB, stock StockReserver, gen func() string) Repository {
	return &repository{db: db, stock: stock, newOrderNumber: gen}
}

const orderCols = `id, order_number, buyer_id, seller_id, total_cents, status,
	payment_status, settled, shipping_address, payment_method, created_at, updated_at`

// Checkout converts an active cart into an order in one transaction. Stock
// is decremented conditionally per line; any shortfall rolls back the whole
// operation.
func (r *repository) Checkout(ctx context.Context, buyerID, cartID int, shippingAddress, paymentMethod string) (*Order, []Item, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	var cart struct {
		ID       int `db:"id"`
		SellerID int `db:"seller_id"`
	}
	err = tx.GetContext(ctx, &cart, `
		SELECT id, seller_id
		FROM carts
		WHERE id = $1 AND buyer_id = $2 AND status = 'active'
		FOR UPDATE
	`, cartID, buyerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrCartNotFound
		}
		return nil, nil, fmt.Errorf("lock cart: %w", err)
	}

	var lines []struct {
		ListingID      int    `db:"listing_id"`
		Quantity       int    `db:"quantity"`
		UnitPriceCents int64  `db:"unit_price_cents"`
		Name           string `db:"name"`
	}
	err = tx.SelectContext(ctx, &lines, `
		SELECT ci.listing_id, ci.quantity, ci.unit_price_cents, l.name
		FROM cart_items ci
		JOIN listings l ON ci.listing_id = l.id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`, cart.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load cart items: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil, ErrEmptyCart
	}

	var totalCents int64
	for _, line := range lines {
		if err := r.stock.ReserveStock(ctx, tx, line.ListingID, line.Quantity); err != nil {
			return nil, nil, err
		}
		totalCents += int64(line.Quantity) * line.UnitPriceCents
	}

	var o Order
	for attempt := 0; ; attempt++ {
		// A unique violation aborts the whole transaction; the savepoint is
		// what makes another insert attempt possible.
		if _, err = tx.ExecContext(ctx, "SAVEPOINT order_insert"); err != nil {
			return nil, nil, fmt.Errorf("savepoint: %w", err)
		}
		err = tx.GetContext(ctx, &o, `
			INSERT INTO orders (order_number, buyer_id, seller_id, total_cents,
				status, payment_status, shipping_address, payment_method)
			VALUES ($1, $2, $3, $4, 'pending', 'pending', $5, $6)
			RETURNING `+orderCols+`
		`, r.newOrderNumber(), buyerID, cart.SellerID, totalCents, shippingAddress, paymentMethod)
		if err == nil {
			break
		}
		if isUniqueViolation(err) && attempt < orderNumberRetries {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT order_insert"); rbErr != nil {
				return nil, nil, fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			continue
		}
		return nil, nil, fmt.Errorf("insert order: %w", err)
	}

	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		var item Item
		err = tx.GetContext(ctx, &item, `
			INSERT INTO order_items (order_id, listing_id, name, quantity, unit_price_cents, line_total_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, order_id, listing_id, name, quantity, unit_price_cents, line_total_cents
		`, o.ID, line.ListingID, line.Name, line.Quantity, line.UnitPriceCents, int64(line.Quantity)*line.UnitPriceCents)
		if err != nil {
			return nil, nil, fmt.Errorf("insert order item: %w", err)
		}
		items = append(items, item)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE carts SET status = 'completed', updated_at = NOW() WHERE id = $1
	`, cart.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("complete cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit checkout: %w", err)
	}

	return &o, items, nil
}

func (r *repository) GetByID(ctx context.Context, orderID int) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `
		SELECT `+orderCols+` FROM orders WHERE id = $1
	`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// SetPaid flips payment_status from pending to paid. A replayed call is
// rejected with ErrNotPending.
func (r *repository) SetPaid(ctx context.Context, orderID int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = 'paid', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`, orderID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// UpdateStatus advances the order. The delivered transition check-and-sets
// the settled flag so a repeated delivery is a no-op rather than a second
// settlement.
func (r *repository) UpdateStatus(ctx context.Context, orderID int, newStatus string) (*Order, error) {
	var o Order
	var err error
	if newStatus == StatusDelivered {
		err = r.db.GetContext(ctx, &o, `
			UPDATE orders
			SET status = $2, settled = TRUE, updated_at = NOW()
			WHERE id = $1 AND settled = FALSE
			RETURNING `+orderCols+`
		`, orderID, newStatus)
		if errors.Is(err, sql.ErrNoRows) {
			// Already settled; return the current row unchanged.
			return r.GetByID(ctx, orderID)
		}
	} else {
		err = r.db.GetContext(ctx, &o, `
			UPDATE orders
			SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+orderCols+`
		`, orderID, newStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID int) ([]Order, error) {
	orders := []Order{}
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderCols+` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID int) ([]Order, error) {
	orders := []Order{}
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderCols+` FROM orders WHERE seller_id = $1 ORDER BY created_at DESC
	`, sellerID)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) GetOrderItems(ctx context.Context, orderID int) ([]Item, error) {
	items := []Item{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, order_id, listing_id, name, quantity, unit_price_cents, line_total_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	return items, nil
}
