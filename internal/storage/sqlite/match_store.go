package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// InsertPotentialMatch records a candidate pair. Returns storage.ErrConflict
// when the pair already exists.
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
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	reasonsJSON, err := json.Marshal(m.MatchReasons)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal match reasons: %w", err)
	}

	const query = `
		INSERT INTO potential_matches (id, entity_a_id, entity_b_id, match_score, match_reasons, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		m.ID, m.EntityAID, m.EntityBID, m.MatchScore,
		nullableBytes(reasonsJSON), status, createdAt)
	if err != nil {
		if isConstraintViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("sqlite: failed to insert potential match: %w", err)
	}

	return nil
}

// CountPendingMatches returns the size of the pending review backlog.
func (s *Store) CountPendingMatches(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM potential_matches WHERE status = ?", types.MatchPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to count pending matches: %w", err)
	}
	return count, nil
}
