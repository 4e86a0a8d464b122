package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// InsertEpisode stores one synthesized episode. The embedding goes into the
// pgvector column when the extension is available; otherwise the episode is
// stored without it, matching the degraded-but-functional behavior of the
// rest of the store.
func (s *Store) InsertEpisode(ctx context.Context, ep *types.Episode) error {
	if ep == nil || ep.ID == "" {
		return fmt.Errorf("%w: episode with ID is required", storage.ErrInvalidInput)
	}
	if ep.ProjectCode == "" {
		return fmt.Errorf("%w: episode project code is required", storage.ErrInvalidInput)
	}

	keyEventsJSON, err := json.Marshal(ep.KeyEvents)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal key events: %w", err)
	}

	var topicsJSON []byte
	if len(ep.Topics) > 0 {
		topicsJSON, err = json.Marshal(ep.Topics)
		if err != nil {
			return fmt.Errorf("postgres: failed to marshal topics: %w", err)
		}
	}

	if s.vectorAvailable && len(ep.Embedding) > 0 {
		const query = `
			INSERT INTO episodes (id, title, summary, episode_type, project_code, started_at, ended_at, key_events, topics, status, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, CURRENT_TIMESTAMP))
		`
		_, err = s.db.ExecContext(ctx, query,
			ep.ID, ep.Title, ep.Summary, string(ep.EpisodeType), ep.ProjectCode,
			ep.StartedAt, ep.EndedAt,
			nullableBytes(keyEventsJSON), nullableBytes(topicsJSON),
			string(ep.Status), pgvector.NewVector(ep.Embedding),
			nullableTime(&ep.CreatedAt),
		)
	} else {
		const query = `
			INSERT INTO episodes (id, title, summary, episode_type, project_code, started_at, ended_at, key_events, topics, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, CURRENT_TIMESTAMP))
		`
		_, err = s.db.ExecContext(ctx, query,
			ep.ID, ep.Title, ep.Summary, string(ep.EpisodeType), ep.ProjectCode,
			ep.StartedAt, ep.EndedAt,
			nullableBytes(keyEventsJSON), nullableBytes(topicsJSON),
			string(ep.Status),
			nullableTime(&ep.CreatedAt),
		)
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to insert episode: %w", err)
	}

	return nil
}

// ListEpisodes returns all episodes ordered by started_at ascending.
// Embeddings are not hydrated.
func (s *Store) ListEpisodes(ctx context.Context) ([]types.Episode, error) {
	const query = `
		SELECT id, title, summary, episode_type, project_code, started_at, ended_at, key_events, topics, status, created_at
		FROM episodes
		ORDER BY started_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var episodes []types.Episode
	for rows.Next() {
		ep, err := scanEpisodeRow(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}

	return episodes, nil
}

// CountEpisodes returns the total number of stored episodes.
func (s *Store) CountEpisodes(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM episodes").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count episodes: %w", err)
	}
	return count, nil
}

// scanEpisodeRow scans one episodes row in ListEpisodes column order.
func scanEpisodeRow(rows *sql.Rows) (types.Episode, error) {
	var ep types.Episode
	var episodeType, status string
	var keyEventsJSON, topicsJSON sql.NullString

	err := rows.Scan(&ep.ID, &ep.Title, &ep.Summary, &episodeType, &ep.ProjectCode,
		&ep.StartedAt, &ep.EndedAt, &keyEventsJSON, &topicsJSON, &status, &ep.CreatedAt)
	if err != nil {
		return ep, fmt.Errorf("postgres: scan episode row: %w", err)
	}

	ep.EpisodeType = types.EpisodeType(episodeType)
	ep.Status = types.EpisodeStatus(status)

	if keyEventsJSON.Valid && keyEventsJSON.String != "" {
		if err := json.Unmarshal([]byte(keyEventsJSON.String), &ep.KeyEvents); err != nil {
			return ep, fmt.Errorf("postgres: unmarshal key events for %s: %w", ep.ID, err)
		}
	}
	if topicsJSON.Valid && topicsJSON.String != "" {
		if err := json.Unmarshal([]byte(topicsJSON.String), &ep.Topics); err != nil {
			return ep, fmt.Errorf("postgres: unmarshal topics for %s: %w", ep.ID, err)
		}
	}

	return ep, nil
}
