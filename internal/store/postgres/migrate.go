// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package postgres

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"text/template"

	"github.com/pdiddy/research-connector/internal/taxonomy"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type migrationParams struct {
	Dimension int
}

// renderMigrations returns the migration scripts in file-name order with
// the vector dimension substituted.
func renderMigrations(dimension int) ([]string, []string, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, nil, fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		tmpl, err := template.ParseFS(migrationFS, name)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing migration %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, migrationParams{Dimension: dimension}); err != nil {
			return nil, nil, fmt.Errorf("rendering migration %s: %w", name, err)
		}
		scripts = append(scripts, buf.String())
	}
	return names, scripts, nil
}

// Migrate applies every embedded migration and seeds the taxonomy. The
// scripts are idempotent, so Migrate can run on every deploy.
func (s *Store) Migrate(ctx context.Context) error {
	names, scripts, err := renderMigrations(s.dimension)
	if err != nil {
		return err
	}

	for i, script := range scripts {
		// Without arguments pgx uses the simple protocol, which accepts
		// multi-statement scripts.
		if _, err := s.pool.Exec(ctx, script); err != nil {
			return fmt.Errorf("applying migration %s: %w", names[i], err)
		}
	}

	topics, err := taxonomy.Topics()
	if err != nil {
		return err
	}
	return s.SeedTopics(ctx, topics)
}
