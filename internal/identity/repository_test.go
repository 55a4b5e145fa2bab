package identity

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupIdentityMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func TestGetCanonicalKey_Found(t *testing.T) {
	repo, mock, close := setupIdentityMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT canonical_key FROM identity_mappings WHERE external_id = $1")).
		WithArgs("0d9070b6-6bf4-4a4b-9e04-2a0b4f28b6f1").
		WillReturnRows(sqlmock.NewRows([]string{"canonical_key"}).AddRow(42))

	key, err := repo.GetCanonicalKey(context.Background(), "0d9070b6-6bf4-4a4b-9e04-2a0b4f28b6f1")
	require.NoError(t, err)
	require.Equal(t, 42, key)
}

func TestGetCanonicalKey_Missing(t *testing.T) {
	repo, mock, close := setupIdentityMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT canonical_key FROM identity_mappings WHERE external_id = $1")).
		WithArgs("9e1b39b7-9d0e-4b77-82a8-5f60d1b1a9cd").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetCanonicalKey(context.Background(), "9e1b39b7-9d0e-4b77-82a8-5f60d1b1a9cd")
	require.ErrorIs(t, err, ErrMappingNotFound)
}
