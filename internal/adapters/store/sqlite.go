package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the EmailStore interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// EnsureSchema creates the emails table and indexes if they do not
// exist. Additive only.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS emails (
			id TEXT PRIMARY KEY,
			subject TEXT,
			sender TEXT,
			body TEXT,
			category TEXT,
			category_lower TEXT,
			received_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create emails table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category_lower)
	`)
	if err != nil {
		return fmt.Errorf("failed to create category index: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_emails_received ON emails(received_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create received_at index: %w", err)
	}

	return nil
}

// Upsert inserts or fully replaces the record keyed by its ID
func (s *SQLiteStore) Upsert(ctx context.Context, record *core.ClassifiedRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emails (id, subject, sender, body, category, category_lower, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			sender = excluded.sender,
			body = excluded.body,
			category = excluded.category,
			category_lower = excluded.category_lower,
			received_at = excluded.received_at
	`, record.ID, record.Subject, record.Sender, record.Body,
		string(record.Category), record.CategoryNormalized(), record.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert email %s: %w", record.ID, err)
	}
	return nil
}

// SearchByCategory returns records matching the normalized category,
// most recent first. An empty category matches all records.
func (s *SQLiteStore) SearchByCategory(ctx context.Context, categoryNormalized string, limit int) ([]*core.ClassifiedRecord, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	query := `
		SELECT id, subject, sender, body, category, received_at
		FROM emails
	`
	args := []interface{}{}
	if categoryNormalized != "" {
		query += ` WHERE category_lower = ?`
		args = append(args, categoryNormalized)
	}
	query += ` ORDER BY received_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	defer rows.Close()

	var results []*core.ClassifiedRecord
	for rows.Next() {
		var r core.ClassifiedRecord
		var category string
		if err := rows.Scan(&r.ID, &r.Subject, &r.Sender, &r.Body, &category, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan email row: %w", err)
		}
		r.Category = core.Category(category)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate email rows: %w", err)
	}
	return results, nil
}

// Refresh is a no-op; SQLite writes are immediately visible
func (s *SQLiteStore) Refresh(ctx context.Context) error {
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
