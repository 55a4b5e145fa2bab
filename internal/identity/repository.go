package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrMappingNotFound = errors.New("identity mapping not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCanonicalKey(ctx context.Context, externalID string) (int, error) {
	var key int
	err := r.db.GetContext(ctx, &key,
		`SELECT canonical_key FROM identity_mappings WHERE external_id = $1`,
		externalID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrMappingNotFound
		}
		return 0, err
	}

	return key, nil
}

func (r *repository) AddMapping(ctx context.Context, externalID string, canonicalKey int) (*Mapping, error) {
	var m Mapping
	err := r.db.GetContext(ctx, &m, `
		INSERT INTO identity_mappings (external_id, canonical_key)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET canonical_key = identity_mappings.canonical_key
		RETURNING external_id, canonical_key, created_at
	`, externalID, canonicalKey)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
