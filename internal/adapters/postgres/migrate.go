package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

// Migrate applies every *.up.sql file in fsys in name order. Each file runs
// in its own transaction; applied versions are tracked in schema_migrations.
func Migrate(ctx context.Context, db *DB, fsys fs.FS) error {
	return run(ctx, db, fsys, ".up.sql", false)
}

// Rollback reverts the most recently applied migration using its *.down.sql file.
func Rollback(ctx context.Context, db *DB, fsys fs.FS) error {
	return run(ctx, db, fsys, ".down.sql", true)
}

func run(ctx context.Context, db *DB, fsys fs.FS, suffix string, down bool) error {
	if _, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*"+suffix)
	if err != nil {
		return err
	}
	sort.Strings(files)
	if down {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, f := range files {
		version := strings.TrimSuffix(f, suffix)

		var applied bool
		if err := db.Pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("check %s: %w", version, err)
		}
		if applied == down {
			if err := apply(ctx, db, fsys, f, version, down); err != nil {
				return err
			}
			slog.Info("migration applied", "file", f)
			if down {
				return nil
			}
		}
	}
	return nil
}

func apply(ctx context.Context, db *DB, fsys fs.FS, file, version string, down bool) error {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, string(data)); err != nil {
		return fmt.Errorf("exec %s: %w", file, err)
	}
	if down {
		_, err = tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
	} else {
		_, err = tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
	}
	if err != nil {
		return fmt.Errorf("record %s: %w", version, err)
	}
	return tx.Commit(ctx)
}
