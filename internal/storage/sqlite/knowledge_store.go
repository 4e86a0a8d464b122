package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// ListKnowledgeItems returns knowledge items matching the filter, ordered by
// recorded_at ascending with undated items last.
func (s *Store) ListKnowledgeItems(ctx context.Context, filter storage.KnowledgeFilter) ([]types.KnowledgeItem, error) {
	query := `
		SELECT id, title, knowledge_type, project_code, recorded_at, topics, summary
		FROM knowledge_items
		WHERE 1=1
	`
	var args []interface{}

	if filter.ProjectLinkedOnly {
		query += " AND project_code IS NOT NULL AND project_code <> ''"
	}
	if filter.ProjectCode != "" {
		query += " AND project_code = ?"
		args = append(args, filter.ProjectCode)
	}
	query += " ORDER BY recorded_at IS NULL, recorded_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list knowledge items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []types.KnowledgeItem
	for rows.Next() {
		var item types.KnowledgeItem
		var projectCode, summary, topicsJSON sql.NullString
		var recordedAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.Title, &item.KnowledgeType, &projectCode, &recordedAt, &topicsJSON, &summary); err != nil {
			return nil, fmt.Errorf("sqlite: scan knowledge item row: %w", err)
		}

		item.ProjectCode = projectCode.String
		item.Summary = summary.String
		if recordedAt.Valid {
			t := recordedAt.Time
			item.RecordedAt = &t
		}
		if topicsJSON.Valid && topicsJSON.String != "" {
			if err := json.Unmarshal([]byte(topicsJSON.String), &item.Topics); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal topics for %s: %w", item.ID, err)
			}
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows error: %w", err)
	}

	return items, nil
}

// InsertKnowledgeItem writes a knowledge item row for the setup tool and
// tests.
func (s *Store) InsertKnowledgeItem(ctx context.Context, item *types.KnowledgeItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: knowledge item with ID is required", storage.ErrInvalidInput)
	}

	var topicsJSON []byte
	var err error
	if len(item.Topics) > 0 {
		topicsJSON, err = json.Marshal(item.Topics)
		if err != nil {
			return fmt.Errorf("sqlite: failed to marshal topics: %w", err)
		}
	}

	const query = `
		INSERT INTO knowledge_items (id, title, knowledge_type, project_code, recorded_at, topics, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			knowledge_type = excluded.knowledge_type,
			project_code = excluded.project_code,
			recorded_at = excluded.recorded_at,
			topics = excluded.topics,
			summary = excluded.summary
	`

	_, err = s.db.ExecContext(ctx, query,
		item.ID,
		item.Title,
		item.KnowledgeType,
		nullableString(item.ProjectCode),
		nullableTime(item.RecordedAt),
		nullableBytes(topicsJSON),
		nullableString(item.Summary),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert knowledge item: %w", err)
	}

	return nil
}
