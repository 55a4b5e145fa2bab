package identity

import "context"

type Repository interface {
	GetCanonicalKey(ctx context.Context, externalID string) (int, error)
	AddMapping(ctx context.Context, externalID string, canonicalKey int) (*Mapping, error)
}
