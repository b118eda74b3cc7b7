// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package postgres is the store of record: Postgres with the pgvector
// extension, accessed through a pgx connection pool. Similarity search and
// recommendation scoring run in SQL functions installed by Migrate.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/research-connector/internal/store"
)

// Config holds connection settings.
type Config struct {
	// URL is a libpq connection string or postgres:// URL.
	URL string

	// MaxConns caps the pool; zero keeps the pgx default.
	MaxConns int32

	// Dimension is the vector length of papers.embedding.
	Dimension int
}

// Store implements store.Store on Postgres.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
}

var _ store.Store = (*Store)(nil)

// Open connects the pool and verifies connectivity. It does not migrate.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres backend requires a database URL (store.database_url, DATABASE_URL or .secrets/database-url)")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("postgres backend requires a positive embedding dimension, got %d", cfg.Dimension)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return &Store{pool: pool, dimension: cfg.Dimension}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Postgres error codes mapped onto the store sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
)

// translate maps pgx and server errors onto the store sentinels, keeping
// the cause. Malformed UUIDs can never match a row and map to not found.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
		case codeForeignKeyViolation, codeInvalidText:
			return fmt.Errorf("%w: %w", store.ErrNotFound, err)
		case codeCheckViolation, codeNotNullViolation:
			return fmt.Errorf("%w: %w", store.ErrInvalidData, err)
		}
	}
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// limitArg turns a non-positive limit into NULL, which LIMIT treats as no
// limit.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// topicsArg passes an empty filter as NULL.
func topicsArg(topics []int) any {
	if len(topics) == 0 {
		return nil
	}
	return topics
}
