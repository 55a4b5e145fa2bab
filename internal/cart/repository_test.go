package cart

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var cartCols = []string{"id", "buyer_id", "seller_id", "status", "created_at", "updated_at"}

func cartRow(id, buyerID, sellerID int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(cartCols).AddRow(id, buyerID, sellerID, StatusActive, now, now)
}

func TestGetOrCreateCart_ReturnsExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts WHERE buyer_id = $1 AND seller_id = $2 AND status = 'active'")).
		WithArgs(1, 2).
		WillReturnRows(cartRow(3, 1, 2))

	c, err := repo.GetOrCreateCart(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Equal(t, 3, c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateCart_CreatesWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts WHERE buyer_id = $1 AND seller_id = $2 AND status = 'active'")).
		WithArgs(1, 2).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO carts (buyer_id, seller_id, status) VALUES ($1, $2, 'active')")).
		WithArgs(1, 2).
		WillReturnRows(cartRow(3, 1, 2))

	c, err := repo.GetOrCreateCart(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Equal(t, 3, c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateCart_ConcurrentCreateReselects(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts WHERE buyer_id = $1 AND seller_id = $2 AND status = 'active'")).
		WithArgs(1, 2).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO carts")).
		WithArgs(1, 2).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(regexp.QuoteMeta("FROM carts WHERE buyer_id = $1 AND seller_id = $2 AND status = 'active'")).
		WithArgs(1, 2).
		WillReturnRows(cartRow(9, 1, 2))

	c, err := repo.GetOrCreateCart(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Equal(t, 9, c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertItem_MergesQuantityAndResnapshotsPrice(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (cart_id, listing_id) DO UPDATE")).
		WithArgs(3, 7, 2, int64(5500)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "listing_id", "quantity", "unit_price_cents"}).
			AddRow(11, 3, 7, 6, int64(5500)))

	item, err := repo.UpsertItem(context.Background(), 3, 7, 2, 5500)

	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)
	assert.Equal(t, int64(5500), item.UnitPriceCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetItems_ComputesLineTotals(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN listings l ON ci.listing_id = l.id")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "listing_id", "quantity", "unit_price_cents", "listing_name", "unit"}).
			AddRow(11, 3, 7, 3, int64(5000), "Maize", "kg").
			AddRow(12, 3, 8, 2, int64(2500), "Beans", "kg"))

	items, err := repo.GetItems(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(15000), items[0].LineTotalCents)
	assert.Equal(t, int64(5000), items[1].LineTotalCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItemOwned_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items ci USING carts c")).
		WithArgs(11, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteItemOwned(context.Background(), 11, 99)

	assert.ErrorIs(t, err, ErrItemNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItemOwned_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items ci USING carts c")).
		WithArgs(11, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteItemOwned(context.Background(), 11, 1)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
