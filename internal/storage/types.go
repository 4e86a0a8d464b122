package storage

import (
	"errors"

	"github.com/act-global/loom/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a uniqueness-constraint violation. For potential
	// match inserts this is the idempotency mechanism: callers treat it as
	// "already recorded", never as a failure.
	ErrConflict = errors.New("conflict with existing row")
)

// DuplicateCandidate is one result of the datastore's similarity search for
// a given entity. MatchScore already reflects name/email/company proximity
// as computed by the backend.
type DuplicateCandidate struct {
	CandidateID  string             `json:"candidate_id"`
	MatchScore   float64            `json:"match_score"`
	MatchReasons types.MatchReasons `json:"match_reasons"`
}

// KnowledgeFilter constrains ListKnowledgeItems.
type KnowledgeFilter struct {
	// ProjectLinkedOnly excludes items without a project code. The episode
	// clusterer always sets this: unlinked items cannot be clustered.
	ProjectLinkedOnly bool

	// ProjectCode restricts results to a single project when non-empty.
	ProjectCode string
}
