// Package sqlite provides a SQLite implementation of the Loom storage
// interfaces for local and development runs. Similarity search is computed
// in-process since SQLite has no server-side similarity capability.
package sqlite

// Schema contains the SQLite DDL. All statements are idempotent.
const Schema = `
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

CREATE TABLE IF NOT EXISTS potential_matches (
    id TEXT PRIMARY KEY,
    entity_a_id TEXT NOT NULL,
    entity_b_id TEXT NOT NULL,
    match_score REAL NOT NULL,
    match_reasons TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    UNIQUE (entity_a_id, entity_b_id),
    CHECK (entity_a_id < entity_b_id)
);

CREATE INDEX IF NOT EXISTS idx_potential_matches_status ON potential_matches(status);

CREATE TABLE IF NOT EXISTS knowledge_items (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    knowledge_type TEXT NOT NULL,
    project_code TEXT,
    recorded_at TIMESTAMP,
    topics TEXT,
    summary TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_knowledge_items_project ON knowledge_items(project_code);

CREATE TABLE IF NOT EXISTS episodes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL,
    episode_type TEXT NOT NULL,
    project_code TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP NOT NULL,
    key_events TEXT,
    topics TEXT,
    status TEXT NOT NULL DEFAULT 'completed',
    embedding BLOB,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_episodes_project ON episodes(project_code);
CREATE INDEX IF NOT EXISTS idx_episodes_started_at ON episodes(started_at);
`
