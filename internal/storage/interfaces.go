// Package storage defines the datastore contracts consumed by the Loom
// pipelines.
//
// The interfaces are small and focused so the batch pipelines can be wired
// against either the PostgreSQL backend (production) or the SQLite backend
// (local runs), and against in-memory fakes in tests.
package storage

import (
	"context"

	"github.com/act-global/loom/pkg/types"
)

// EntityStore provides read access to canonical entities and the
// similarity-search capability used by phase 1 of duplicate detection.
type EntityStore interface {
	// ListEntities returns all entities of the given type, ordered by
	// created_at ascending. Processing order only affects logging, not
	// correctness, but a deterministic scan order keeps runs comparable.
	ListEntities(ctx context.Context, entityType string) ([]types.CanonicalEntity, error)

	// FindPotentialDuplicates returns candidates likely to be the same
	// real-world entity as entityID, with match_score >= threshold. The
	// exact matching algorithm is the backend's concern; Postgres uses
	// trigram similarity server-side, SQLite computes it in-process.
	FindPotentialDuplicates(ctx context.Context, entityID string, threshold float64) ([]DuplicateCandidate, error)
}

// MatchStore records candidate duplicate pairs.
type MatchStore interface {
	// InsertPotentialMatch inserts a pending match row. Returns ErrConflict
	// when the (entity_a_id, entity_b_id) pair already exists; callers must
	// treat that as a benign skip. EntityAID must sort before EntityBID.
	InsertPotentialMatch(ctx context.Context, m *types.PotentialMatch) error

	// CountPendingMatches returns the size of the pending review backlog.
	CountPendingMatches(ctx context.Context) (int, error)
}

// KnowledgeStore provides read access to knowledge items.
type KnowledgeStore interface {
	ListKnowledgeItems(ctx context.Context, filter KnowledgeFilter) ([]types.KnowledgeItem, error)
}

// EpisodeStore persists synthesized episodes.
type EpisodeStore interface {
	// InsertEpisode stores one episode with its embedding.
	InsertEpisode(ctx context.Context, ep *types.Episode) error

	// ListEpisodes returns all stored episodes ordered by started_at
	// ascending. Embeddings are not hydrated; list consumers only need the
	// descriptive fields.
	ListEpisodes(ctx context.Context) ([]types.Episode, error)

	CountEpisodes(ctx context.Context) (int, error)
}

// Store is the full datastore surface both pipelines share.
type Store interface {
	EntityStore
	MatchStore
	KnowledgeStore
	EpisodeStore

	// Close releases any resources held by the store.
	Close() error
}
