// Package postgres provides the PostgreSQL implementation of the Loom
// storage interfaces.
package postgres

// Schema contains the base DDL. Every statement is idempotent (IF NOT
// EXISTS) so it can be applied on each store construction, the same way the
// upstream ingestion service does.
const Schema = `
-- Canonical entities: deduplicated real-world people and organisations.
-- Written by upstream ingestion; the pipelines here only read them.
CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL DEFAULT 'person',
    canonical_name TEXT,
    canonical_email TEXT,
    canonical_phone TEXT,
    canonical_company TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
CREATE INDEX IF NOT EXISTS idx_entities_created_at ON entities(created_at);
CREATE INDEX IF NOT EXISTS idx_entities_email_lower ON entities(lower(canonical_email));

-- Candidate duplicate pairs awaiting review. The unique constraint on the
-- ordered pair is the idempotency mechanism for re-runs, and the CHECK
-- guarantees each unordered pair has a single canonical representation.
CREATE TABLE IF NOT EXISTS potential_matches (
    id TEXT PRIMARY KEY,
    entity_a_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    entity_b_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    match_score REAL NOT NULL,
    match_reasons JSONB,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    UNIQUE (entity_a_id, entity_b_id),
    CHECK (entity_a_id < entity_b_id)
);

CREATE INDEX IF NOT EXISTS idx_potential_matches_status ON potential_matches(status);

-- Knowledge items: timestamped facts and notes captured upstream.
CREATE TABLE IF NOT EXISTS knowledge_items (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    knowledge_type TEXT NOT NULL,
    project_code TEXT,
    recorded_at TIMESTAMP,
    topics JSONB,
    summary TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_knowledge_items_project ON knowledge_items(project_code);
CREATE INDEX IF NOT EXISTS idx_knowledge_items_recorded_at ON knowledge_items(recorded_at);

-- Episodes: synthesized clusters of knowledge items. key_events is a
-- denormalized snapshot, not a foreign-key reference, so episodes stay
-- stable if source items change later.
CREATE TABLE IF NOT EXISTS episodes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL,
    episode_type TEXT NOT NULL,
    project_code TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP NOT NULL,
    key_events JSONB,
    topics JSONB,
    status TEXT NOT NULL DEFAULT 'completed',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_episodes_project ON episodes(project_code);
CREATE INDEX IF NOT EXISTS idx_episodes_started_at ON episodes(started_at);
`

// MigrationVector adds the pgvector embedding column to episodes. Applied
// only when the vector extension is available. Safe to run repeatedly.
const MigrationVector = `
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'episodes' AND column_name = 'embedding'
    ) THEN
        ALTER TABLE episodes ADD COLUMN embedding vector;
    END IF;
END
$$;
`
