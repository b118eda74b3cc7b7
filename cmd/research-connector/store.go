// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-connector/internal/config"
	"github.com/pdiddy/research-connector/internal/embedding"
	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/internal/store/postgres"
	"github.com/pdiddy/research-connector/internal/store/sqlite"
	"github.com/pdiddy/research-connector/pkg/types"
)

// openStore opens the backend selected by store.backend. The sqlite
// backend migrates on open; postgres is migrated by the migrate command.
func openStore(ctx context.Context, cfg types.Config) (store.Store, error) {
	if err := config.RequireStore(cfg.Store); err != nil {
		return nil, err
	}
	switch cfg.Store.Backend {
	case types.BackendPostgres:
		s, err := postgres.Open(ctx, postgres.Config{
			URL:       cfg.Store.DatabaseURL,
			MaxConns:  cfg.Store.MaxConns,
			Dimension: cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case types.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openEmbedder builds the configured provider with request metrics.
func openEmbedder(cfg types.Config) (embedding.Provider, error) {
	if err := config.RequireEmbedding(cfg.Embedding); err != nil {
		return nil, err
	}
	p, err := embedding.New(cfg.Embedding, nil)
	if err != nil {
		return nil, err
	}
	return embedding.Instrument(p, app.metrics), nil
}
