package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/act-global/loom/internal/match"
	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// ListEntities returns all entities of the given type ordered by creation
// time ascending.
func (s *Store) ListEntities(ctx context.Context, entityType string) ([]types.CanonicalEntity, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: entity type is required", storage.ErrInvalidInput)
	}

	const query = `
		SELECT id, entity_type, canonical_name, canonical_email, canonical_phone, canonical_company, created_at
		FROM entities
		WHERE entity_type = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []types.CanonicalEntity
	for rows.Next() {
		var e types.CanonicalEntity
		var name, email, phone, company sql.NullString
		if err := rows.Scan(&e.ID, &e.EntityType, &name, &email, &phone, &company, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan entity row: %w", err)
		}
		e.CanonicalName = name.String
		e.CanonicalEmail = email.String
		e.CanonicalPhone = phone.String
		e.CanonicalCompany = company.String
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows error: %w", err)
	}

	return entities, nil
}

// FindPotentialDuplicates computes similarity in-process: SQLite has no
// server-side similarity search, so the target entity is compared against
// every other entity of the same type using the shared scoring heuristics.
func (s *Store) FindPotentialDuplicates(ctx context.Context, entityID string, threshold float64) ([]storage.DuplicateCandidate, error) {
	if entityID == "" {
		return nil, fmt.Errorf("%w: entity ID is required", storage.ErrInvalidInput)
	}

	target, err := s.getEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	others, err := s.ListEntities(ctx, target.EntityType)
	if err != nil {
		return nil, err
	}

	var candidates []storage.DuplicateCandidate
	for _, other := range others {
		if other.ID == target.ID {
			continue
		}
		score, reasons := match.Similarity(target, other)
		if score < threshold {
			continue
		}
		candidates = append(candidates, storage.DuplicateCandidate{
			CandidateID:  other.ID,
			MatchScore:   score,
			MatchReasons: reasons,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})

	return candidates, nil
}

// getEntity loads one entity by ID.
func (s *Store) getEntity(ctx context.Context, id string) (types.CanonicalEntity, error) {
	const query = `
		SELECT id, entity_type, canonical_name, canonical_email, canonical_phone, canonical_company, created_at
		FROM entities
		WHERE id = ?
	`

	var e types.CanonicalEntity
	var name, email, phone, company sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.EntityType, &name, &email, &phone, &company, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, fmt.Errorf("%w: entity %s", storage.ErrNotFound, id)
		}
		return e, fmt.Errorf("sqlite: failed to get entity: %w", err)
	}
	e.CanonicalName = name.String
	e.CanonicalEmail = email.String
	e.CanonicalPhone = phone.String
	e.CanonicalCompany = company.String
	return e, nil
}

// InsertEntity writes a canonical entity row for the setup tool and tests.
func (s *Store) InsertEntity(ctx context.Context, e *types.CanonicalEntity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("%w: entity with ID is required", storage.ErrInvalidInput)
	}

	entityType := e.EntityType
	if entityType == "" {
		entityType = types.EntityTypePerson
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const query = `
		INSERT INTO entities (id, entity_type, canonical_name, canonical_email, canonical_phone, canonical_company, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			canonical_name = excluded.canonical_name,
			canonical_email = excluded.canonical_email,
			canonical_phone = excluded.canonical_phone,
			canonical_company = excluded.canonical_company
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		entityType,
		nullableString(e.CanonicalName),
		nullableString(e.CanonicalEmail),
		nullableString(e.CanonicalPhone),
		nullableString(e.CanonicalCompany),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert entity: %w", err)
	}

	return nil
}
