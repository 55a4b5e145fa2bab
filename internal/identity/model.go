package identity

import "time"

// Mapping links one externally issued identifier to the canonical farmer key
// used by the ledger and marketplace.
type Mapping struct {
	ExternalID   string    `db:"external_id" json:"external_id"`
	CanonicalKey int       `db:"canonical_key" json:"canonical_key"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type CreateMappingRequest struct {
	ExternalID   string `json:"external_id" binding:"required,uuid"`
	CanonicalKey int    `json:"canonical_key" binding:"required,min=1"`
}
