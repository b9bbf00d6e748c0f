package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository/sqlstore/migrations"
)

const migrationTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migrate applies the embedded migrations for the store's dialect, each file at most once.
func (s *Store) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, s.db, s.dialect, migrations.FS, s.dialect.Name)
}

func applyMigrations(ctx context.Context, db *sql.DB, d Dialect, migrationFS fs.FS, root string) error {
	if db == nil {
		return errors.New("sql db is required")
	}

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := `CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		name := path.Join(root, file)
		applied, err := migrationApplied(ctx, db, d, name)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		upSQL := extractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		if err := applyOne(ctx, db, d, name, upSQL); err != nil {
			return err
		}
		logger.Info("Applied migration", "name", name, "dialect", d.Name)
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, d Dialect, name, upSQL string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upSQL); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("exec migration %s: %w", name, err)
	}
	record := d.Rebind(`INSERT INTO ` + migrationTable + ` (name, applied_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`)
	if _, err := tx.ExecContext(ctx, record, name, time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

// extractUp returns the statements between the Up and Down markers. Files without
// markers are applied whole.
func extractUp(content string) string {
	start := strings.Index(content, upMarker)
	if start == -1 {
		return content
	}
	body := content[start+len(upMarker):]
	if end := strings.Index(body, downMarker); end != -1 {
		body = body[:end]
	}
	return body
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}

func migrationApplied(ctx context.Context, db *sql.DB, d Dialect, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, d.Rebind("SELECT 1 FROM "+migrationTable+" WHERE name = ?"), name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
