package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// ListKnowledgeItems returns knowledge items matching the filter, ordered by
// recorded_at ascending with undated items last.
func (s *Store) ListKnowledgeItems(ctx context.Context, filter storage.KnowledgeFilter) ([]types.KnowledgeItem, error) {
	query := `
		SELECT id, title, knowledge_type, project_code, recorded_at, topics, summary
		FROM knowledge_items
	`

	var conditions []string
	var args []interface{}

	if filter.ProjectLinkedOnly {
		conditions = append(conditions, "project_code IS NOT NULL AND project_code <> ''")
	}
	if filter.ProjectCode != "" {
		args = append(args, filter.ProjectCode)
		conditions = append(conditions, "project_code = $"+strconv.Itoa(len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY recorded_at ASC NULLS LAST, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list knowledge items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []types.KnowledgeItem
	for rows.Next() {
		var item types.KnowledgeItem
		var projectCode, summary, topicsJSON sql.NullString
		var recordedAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.Title, &item.KnowledgeType, &projectCode, &recordedAt, &topicsJSON, &summary); err != nil {
			return nil, fmt.Errorf("postgres: scan knowledge item row: %w", err)
		}

		item.ProjectCode = projectCode.String
		item.Summary = summary.String
		if recordedAt.Valid {
			t := recordedAt.Time
			item.RecordedAt = &t
		}
		if topicsJSON.Valid && topicsJSON.String != "" {
			if err := json.Unmarshal([]byte(topicsJSON.String), &item.Topics); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal topics for %s: %w", item.ID, err)
			}
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}

	return items, nil
}

// InsertKnowledgeItem writes a knowledge item row. Like InsertEntity this is
// for the setup tool and test seeding only.
func (s *Store) InsertKnowledgeItem(ctx context.Context, item *types.KnowledgeItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: knowledge item with ID is required", storage.ErrInvalidInput)
	}

	var topicsJSON []byte
	var err error
	if len(item.Topics) > 0 {
		topicsJSON, err = json.Marshal(item.Topics)
		if err != nil {
			return fmt.Errorf("postgres: failed to marshal topics: %w", err)
		}
	}

	const query = `
		INSERT INTO knowledge_items (id, title, knowledge_type, project_code, recorded_at, topics, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			knowledge_type = EXCLUDED.knowledge_type,
			project_code = EXCLUDED.project_code,
			recorded_at = EXCLUDED.recorded_at,
			topics = EXCLUDED.topics,
			summary = EXCLUDED.summary
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
		return fmt.Errorf("postgres: failed to insert knowledge item: %w", err)
	}

	return nil
}
