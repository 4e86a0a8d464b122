package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/act-global/loom/internal/storage"
)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db *sql.DB

	// vectorAvailable is true when the pgvector extension is present and the
	// episodes.embedding column exists.
	vectorAvailable bool

	// trgmAvailable is true when pg_trgm is present, enabling server-side
	// name similarity in FindPotentialDuplicates.
	trgmAvailable bool
}

// Ensure Store satisfies the full datastore contract at compile time.
var _ storage.Store = (*Store)(nil)

// NewStore opens a PostgreSQL connection, verifies it, and applies the
// schema. The pgvector and pg_trgm extensions are enabled opportunistically;
// on servers without them the store degrades (no episode embeddings, an
// email/company-only similarity search) rather than failing.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	s := &Store{db: db}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to apply schema: %w", err)
	}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available (episode embeddings disabled): %v", err)
	} else {
		s.vectorAvailable = true
	}

	if s.vectorAvailable {
		if _, err := db.Exec(MigrationVector); err != nil {
			log.Printf("postgres: failed to apply vector migration (episode embeddings disabled): %v", err)
			s.vectorAvailable = false
		}
	}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm"); err != nil {
		log.Printf("postgres: pg_trgm extension not available (similarity search degraded to exact matching): %v", err)
	} else {
		s.trgmAvailable = true
	}

	return s, nil
}

// GetDB returns the underlying database connection for direct operations
// such as health checks and test seeding.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// VectorAvailable reports whether episode embeddings are stored.
func (s *Store) VectorAvailable() bool {
	return s.vectorAvailable
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// TruncateForTest clears all pipeline tables. Only integration tests call
// this.
func (s *Store) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"TRUNCATE potential_matches, episodes, knowledge_items, entities CASCADE")
	if err != nil {
		return fmt.Errorf("postgres: failed to truncate: %w", err)
	}
	return nil
}

// nullableString converts an empty string to SQL NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableTime converts a nil or zero time to SQL NULL.
func nullableTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullableBytes converts empty JSON payloads to SQL NULL.
func nullableBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
