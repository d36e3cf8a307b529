// Package sqlite stores the build history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/application/ports"
)

var _ ports.BuildHistory = (*HistoryStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	build_id   TEXT    NOT NULL,
	profile    TEXT    NOT NULL,
	tool       TEXT    NOT NULL,
	digest     TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	files      INTEGER NOT NULL,
	added      INTEGER NOT NULL,
	changed    INTEGER NOT NULL,
	unchanged  INTEGER NOT NULL,
	removed    INTEGER NOT NULL,
	PRIMARY KEY (build_id, tool)
);
CREATE INDEX IF NOT EXISTS builds_profile_created ON builds (profile, created_at DESC);
`

// HistoryStore implements ports.BuildHistory.
type HistoryStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*HistoryStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Record inserts all records in one transaction.
func (s *HistoryStore) Record(ctx context.Context, records []dto.BuildRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO builds
			(build_id, profile, tool, digest, created_at, files, added, changed, unchanged, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.BuildID, r.Profile, r.Tool, r.Digest, r.CreatedAt.UnixNano(),
			r.Files, r.Added, r.Changed, r.Unchanged, r.Removed,
		); err != nil {
			return fmt.Errorf("failed to record build %s/%s: %w", r.BuildID, r.Tool, err)
		}
	}
	return tx.Commit()
}

// Recent returns the newest records of profile (all profiles when empty).
func (s *HistoryStore) Recent(ctx context.Context, profile string, limit int) ([]dto.BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT build_id, profile, tool, digest, created_at, files, added, changed, unchanged, removed
		FROM builds
		WHERE (? = '' OR profile = ?)
		ORDER BY created_at DESC, tool ASC
		LIMIT ?`, profile, profile, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []dto.BuildRecord
	for rows.Next() {
		var r dto.BuildRecord
		var created int64
		if err := rows.Scan(&r.BuildID, &r.Profile, &r.Tool, &r.Digest, &created,
			&r.Files, &r.Added, &r.Changed, &r.Unchanged, &r.Removed); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
