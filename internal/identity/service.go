package identity

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("identity could not be resolved")
	ErrInvalidIdentifier = errors.New("identifier is neither numeric nor a UUID")
)

// Resolver maps caller-supplied farmer identifiers onto the canonical key.
// Numeric identifiers are taken as canonical directly; UUID-shaped ones go
// through the mapping table. Unmapped UUIDs fail hard so that downstream
// components never see an unresolved identity.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (s *Resolver) Resolve(ctx context.Context, identifier string) (int, error) {
	if identifier == "" {
		return 0, ErrInvalidIdentifier
	}

	if key, err := strconv.Atoi(identifier); err == nil {
		if key <= 0 {
			return 0, ErrInvalidIdentifier
		}
		return key, nil
	}

	if _, err := uuid.Parse(identifier); err != nil {
		return 0, ErrInvalidIdentifier
	}

	key, err := s.repo.GetCanonicalKey(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrMappingNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	return key, nil
}
