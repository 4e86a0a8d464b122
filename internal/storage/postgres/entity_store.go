package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/pkg/types"
)

// nameSimilarCutoff is the trigram similarity above which a candidate's
// name is reported as a match reason.
const nameSimilarCutoff = 0.4

// ListEntities returns all entities of the given type ordered by creation
// time ascending.
func (s *Store) ListEntities(ctx context.Context, entityType string) ([]types.CanonicalEntity, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: entity type is required", storage.ErrInvalidInput)
	}

	const query = `
		SELECT id, entity_type, canonical_name, canonical_email, canonical_phone, canonical_company, created_at
		FROM entities
		WHERE entity_type = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []types.CanonicalEntity
	for rows.Next() {
		var e types.CanonicalEntity
		var name, email, phone, company sql.NullString
		if err := rows.Scan(&e.ID, &e.EntityType, &name, &email, &phone, &company, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan entity row: %w", err)
		}
		e.CanonicalName = name.String
		e.CanonicalEmail = email.String
		e.CanonicalPhone = phone.String
		e.CanonicalCompany = company.String
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}

	return entities, nil
}

// duplicateQueryTrgm scores every same-type entity against the target using
// trigram name similarity plus email/phone/company identity. Column aliases
// can't be referenced at the level they're defined, hence the nesting.
const duplicateQueryTrgm = `
	SELECT candidate_id, match_score, same_email, same_phone, same_company, name_sim
	FROM (
		SELECT b.*,
			LEAST(0.99,
				GREATEST(
					CASE WHEN b.same_email THEN 0.9 ELSE 0.0 END,
					CASE WHEN b.same_phone THEN 0.75 ELSE 0.0 END,
					b.name_sim * 0.8) +
				CASE WHEN b.same_company AND (b.same_email OR b.same_phone OR b.name_sim > 0) THEN 0.1 ELSE 0.0 END
			) AS match_score
		FROM (
			SELECT o.id AS candidate_id,
				(t.canonical_email IS NOT NULL AND o.canonical_email IS NOT NULL
					AND lower(btrim(t.canonical_email)) = lower(btrim(o.canonical_email))) AS same_email,
				(t.canonical_phone IS NOT NULL AND o.canonical_phone IS NOT NULL
					AND regexp_replace(t.canonical_phone, '\D', '', 'g') <> ''
					AND regexp_replace(t.canonical_phone, '\D', '', 'g') = regexp_replace(o.canonical_phone, '\D', '', 'g')) AS same_phone,
				(t.canonical_company IS NOT NULL AND o.canonical_company IS NOT NULL
					AND lower(btrim(t.canonical_company)) = lower(btrim(o.canonical_company))) AS same_company,
				similarity(lower(coalesce(t.canonical_name, '')), lower(coalesce(o.canonical_name, '')))::float8 AS name_sim
			FROM entities o
			JOIN entities t ON t.id = $1
			WHERE o.id <> t.id AND o.entity_type = t.entity_type
		) b
	) scored
	WHERE match_score >= $2
	ORDER BY match_score DESC
`

// duplicateQueryExact is the degraded form used when pg_trgm is missing:
// names only count when they are exactly equal after case folding.
const duplicateQueryExact = `
	SELECT candidate_id, match_score, same_email, same_phone, same_company, name_sim
	FROM (
		SELECT b.*,
			LEAST(0.99,
				GREATEST(
					CASE WHEN b.same_email THEN 0.9 ELSE 0.0 END,
					CASE WHEN b.same_phone THEN 0.75 ELSE 0.0 END,
					b.name_sim * 0.8) +
				CASE WHEN b.same_company AND (b.same_email OR b.same_phone OR b.name_sim > 0) THEN 0.1 ELSE 0.0 END
			) AS match_score
		FROM (
			SELECT o.id AS candidate_id,
				(t.canonical_email IS NOT NULL AND o.canonical_email IS NOT NULL
					AND lower(btrim(t.canonical_email)) = lower(btrim(o.canonical_email))) AS same_email,
				(t.canonical_phone IS NOT NULL AND o.canonical_phone IS NOT NULL
					AND regexp_replace(t.canonical_phone, '\D', '', 'g') <> ''
					AND regexp_replace(t.canonical_phone, '\D', '', 'g') = regexp_replace(o.canonical_phone, '\D', '', 'g')) AS same_phone,
				(t.canonical_company IS NOT NULL AND o.canonical_company IS NOT NULL
					AND lower(btrim(t.canonical_company)) = lower(btrim(o.canonical_company))) AS same_company,
				CASE WHEN t.canonical_name IS NOT NULL AND o.canonical_name IS NOT NULL
					AND lower(btrim(t.canonical_name)) = lower(btrim(o.canonical_name))
					THEN 1.0 ELSE 0.0 END AS name_sim
			FROM entities o
			JOIN entities t ON t.id = $1
			WHERE o.id <> t.id AND o.entity_type = t.entity_type
		) b
	) scored
	WHERE match_score >= $2
	ORDER BY match_score DESC
`

// FindPotentialDuplicates runs the server-side similarity search for one
// entity. With pg_trgm installed the score blends trigram name similarity
// with email/phone identity; without it only exact field matches count.
func (s *Store) FindPotentialDuplicates(ctx context.Context, entityID string, threshold float64) ([]storage.DuplicateCandidate, error) {
	if entityID == "" {
		return nil, fmt.Errorf("%w: entity ID is required", storage.ErrInvalidInput)
	}

	query := duplicateQueryExact
	if s.trgmAvailable {
		query = duplicateQueryTrgm
	}

	rows, err := s.db.QueryContext(ctx, query, entityID, threshold)
	if err != nil {
		return nil, fmt.Errorf("postgres: similarity search for %s: %w", entityID, err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []storage.DuplicateCandidate
	for rows.Next() {
		var c storage.DuplicateCandidate
		var nameSim float64
		if err := rows.Scan(&c.CandidateID, &c.MatchScore,
			&c.MatchReasons.SameEmail, &c.MatchReasons.SamePhone,
			&c.MatchReasons.SameCompany, &nameSim); err != nil {
			return nil, fmt.Errorf("postgres: scan candidate row: %w", err)
		}
		c.MatchReasons.NameSimilar = nameSim >= nameSimilarCutoff
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}

	return candidates, nil
}

// InsertEntity writes a canonical entity row. The pipelines never call this;
// it exists for the setup tool and test seeding.
func (s *Store) InsertEntity(ctx context.Context, e *types.CanonicalEntity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("%w: entity with ID is required", storage.ErrInvalidInput)
	}

	entityType := e.EntityType
	if entityType == "" {
		entityType = types.EntityTypePerson
	}

	const query = `
		INSERT INTO entities (id, entity_type, canonical_name, canonical_email, canonical_phone, canonical_company, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, CURRENT_TIMESTAMP))
		ON CONFLICT (id) DO UPDATE SET
			canonical_name = EXCLUDED.canonical_name,
			canonical_email = EXCLUDED.canonical_email,
			canonical_phone = EXCLUDED.canonical_phone,
			canonical_company = EXCLUDED.canonical_company
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		entityType,
		nullableString(e.CanonicalName),
		nullableString(e.CanonicalEmail),
		nullableString(e.CanonicalPhone),
		nullableString(e.CanonicalCompany),
		nullableTime(&e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert entity: %w", err)
	}

	return nil
}
