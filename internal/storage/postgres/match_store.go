package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// pqUniqueViolation is the PostgreSQL error code for unique-constraint
// violations. Hitting it on a potential match insert is the expected
// idempotency path, not a failure.
const pqUniqueViolation = "23505"

// InsertPotentialMatch records a candidate pair. Returns storage.ErrConflict
// when the pair already exists; callers count that as a skip. The canonical
// ordering invariant (entity_a_id < entity_b_id) is validated here and also
// enforced by a CHECK constraint in the schema.
func (s *Store) InsertPotentialMatch(ctx context.Context, m *types.PotentialMatch) error {
	if m == nil || m.EntityAID == "" || m.EntityBID == "" {
		return fmt.Errorf("%w: both entity IDs are required", storage.ErrInvalidInput)
	}
	if m.EntityAID >= m.EntityBID {
		return fmt.Errorf("%w: pair (%s, %s) is not canonically ordered", storage.ErrInvalidInput, m.EntityAID, m.EntityBID)
	}

	status := m.Status
	if status == "" {
		status = types.MatchPending
	}

	reasonsJSON, err := json.Marshal(m.MatchReasons)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal match reasons: %w", err)
	}

	const query = `
		INSERT INTO potential_matches (id, entity_a_id, entity_b_id, match_score, match_reasons, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, CURRENT_TIMESTAMP))
	`

	_, err = s.db.ExecContext(ctx, query,
		m.ID,
		m.EntityAID,
		m.EntityBID,
		m.MatchScore,
		nullableBytes(reasonsJSON),
		status,
		nullableTime(&m.CreatedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return storage.ErrConflict
		}
		return fmt.Errorf("postgres: failed to insert potential match: %w", err)
	}

	return nil
}

// CountPendingMatches returns the size of the pending review backlog.
func (s *Store) CountPendingMatches(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM potential_matches WHERE status = $1", types.MatchPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to count pending matches: %w", err)
	}
	return count, nil
}
