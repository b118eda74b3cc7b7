// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sqlite is a single-file store backend for development, demos and
// tests. Similarity search is an exact scan scored in Go with the same
// functions the postgres SQL mirrors.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/internal/taxonomy"
)

// Store implements store.Store on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database at path, creates the schema if needed
// and seeds the topic taxonomy.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema and seeds the taxonomy. It is safe to run
// repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS institutions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			country TEXT,
			type TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			institution_id TEXT REFERENCES institutions(id),
			created_at TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_authors_name_institution
			ON authors(name, COALESCE(institution_id, ''))`,
		`CREATE INDEX IF NOT EXISTS idx_authors_email ON authors(lower(email))`,
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL UNIQUE,
			abstract TEXT,
			embedding BLOB,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS author_papers (
			author_id TEXT NOT NULL REFERENCES authors(id),
			paper_id TEXT NOT NULL REFERENCES papers(id),
			author_order INTEGER NOT NULL,
			PRIMARY KEY (author_id, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_author_papers_paper ON author_papers(paper_id)`,
		`CREATE TABLE IF NOT EXISTS sdgs (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			color TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS paper_sdgs (
			paper_id TEXT NOT NULL REFERENCES papers(id),
			sdg_id INTEGER NOT NULL REFERENCES sdgs(id),
			confidence_score REAL NOT NULL CHECK (confidence_score >= 0 AND confidence_score <= 1),
			PRIMARY KEY (paper_id, sdg_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_sdgs_sdg ON paper_sdgs(sdg_id)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS search_logs (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			query_text TEXT NOT NULL,
			sdg_filters TEXT,
			results_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recommendations (
			id TEXT PRIMARY KEY,
			user_email TEXT NOT NULL,
			author_id TEXT NOT NULL REFERENCES authors(id),
			similarity_score REAL NOT NULL,
			shared_sdgs TEXT NOT NULL,
			paper_count INTEGER NOT NULL,
			computed_at TEXT NOT NULL,
			UNIQUE (user_email, author_id)
		)`,
		`CREATE TABLE IF NOT EXISTS recommendation_views (
			id TEXT PRIMARY KEY,
			recommendation_id TEXT NOT NULL REFERENCES recommendations(id),
			user_id TEXT NOT NULL,
			action_taken TEXT NOT NULL CHECK (action_taken IN ('viewed', 'email_sent')),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	topics, err := taxonomy.Topics()
	if err != nil {
		return err
	}
	return s.SeedTopics(ctx, topics)
}

// --- value encoding ---

// encodeVector packs v as little-endian float32 values.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: embedding blob of %d bytes", store.ErrInvalidData, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

func encodeInts(ids []int) string {
	if ids == nil {
		ids = []int{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

func (s *Store) timestamp() string {
	return s.now().Format(time.RFC3339Nano)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// inClause returns "?,?,?" and the arguments for ids.
func inClause(ids []int) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}

// translate maps driver errors onto the store sentinels, keeping the cause.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %w", store.ErrNotFound, err)
		case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("%w: %w", store.ErrInvalidData, err)
		}
	}
	return err
}

func newID() string {
	return uuid.NewString()
}
