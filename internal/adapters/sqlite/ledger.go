// Package sqlite provides the SQLite-backed upload ledger. The ledger
// records every file handle pushed to the scoring provider so an orphan
// left by a crash can be deleted by the startup sweep. Scorecards are
// never persisted here or anywhere else.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // driver registration
	"github.com/pulsevest/backend/internal/core/ports"
)

// Ledger implements the upload-ledger port on a local SQLite file.
type Ledger struct {
	db *sql.DB
}

// compile-time interface assertion
var _ ports.UploadLedger = (*Ledger)(nil)

// NewLedger opens (or creates) the ledger database and runs the schema
// migration.
func NewLedger(storagePath string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record remembers a remote upload before it is used.
func (l *Ledger) Record(ctx context.Context, rec ports.UploadRecord) error {
	query := `
		INSERT INTO uploads (handle, request_id, uri, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			request_id=excluded.request_id,
			uri=excluded.uri,
			created_at=excluded.created_at,
			released_at=NULL;
	`
	if _, err := l.db.ExecContext(ctx, query, rec.Handle, rec.RequestID, rec.URI, rec.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to record upload %s: %w", rec.Handle, err)
	}
	return nil
}

// Release marks a remote upload as deleted.
func (l *Ledger) Release(ctx context.Context, handle string) error {
	if _, err := l.db.ExecContext(ctx,
		"UPDATE uploads SET released_at = CURRENT_TIMESTAMP WHERE handle = ?", handle); err != nil {
		return fmt.Errorf("failed to release upload %s: %w", handle, err)
	}
	return nil
}

// Stale returns unreleased uploads older than the cutoff: candidates for
// the orphan sweep.
func (l *Ledger) Stale(ctx context.Context, olderThan time.Time) ([]ports.UploadRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT handle, request_id, uri, created_at
		FROM uploads
		WHERE released_at IS NULL AND created_at < ?
		ORDER BY created_at ASC
	`, olderThan.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query stale uploads: %w", err)
	}
	defer rows.Close()

	var out []ports.UploadRecord
	for rows.Next() {
		var rec ports.UploadRecord
		var requestID sql.NullString
		var uri sql.NullString
		if err := rows.Scan(&rec.Handle, &requestID, &uri, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload row: %w", err)
		}
		if requestID.Valid {
			rec.RequestID = requestID.String
		}
		if uri.Valid {
			rec.URI = uri.String
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate upload rows: %w", err)
	}
	return out, nil
}

func (l *Ledger) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS uploads (
		handle TEXT PRIMARY KEY,
		request_id TEXT,
		uri TEXT,
		created_at DATETIME NOT NULL,
		released_at DATETIME
	);
	`
	if _, err := l.db.Exec(query); err != nil {
		return err
	}
	return nil
}
