package types

import "time"

// EntityTypePerson is the only entity type the duplicate detector processes.
// Upstream ingestion also writes organization entities, but those are never
// scanned here.
const EntityTypePerson = "person"

// CanonicalEntity represents a deduplicated real-world person owned by the
// upstream ingestion process. The pipelines in this repository treat these
// rows as read-only: they are never mutated or deleted here.
type CanonicalEntity struct {
	ID               string    `json:"id"`
	EntityType       string    `json:"entity_type"`
	CanonicalName    string    `json:"canonical_name,omitempty"`
	CanonicalEmail   string    `json:"canonical_email,omitempty"`
	CanonicalPhone   string    `json:"canonical_phone,omitempty"`
	CanonicalCompany string    `json:"canonical_company,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
