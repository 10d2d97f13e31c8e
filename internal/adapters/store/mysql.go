package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the EmailStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store. The DSN must include
// parseTime=true so received_at scans into time.Time.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// EnsureSchema creates the emails table if it does not exist.
// Additive only.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS emails (
			id VARCHAR(191) PRIMARY KEY,
			subject TEXT,
			sender VARCHAR(255),
			body MEDIUMTEXT,
			category VARCHAR(32),
			category_lower VARCHAR(32),
			received_at DATETIME,
			INDEX idx_emails_category (category_lower),
			INDEX idx_emails_received (received_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create emails table: %w", err)
	}
	return nil
}

// Upsert inserts or fully replaces the record keyed by its ID
func (s *MySQLStore) Upsert(ctx context.Context, record *core.ClassifiedRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emails (id, subject, sender, body, category, category_lower, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			subject = VALUES(subject),
			sender = VALUES(sender),
			body = VALUES(body),
			category = VALUES(category),
			category_lower = VALUES(category_lower),
			received_at = VALUES(received_at)
	`, record.ID, record.Subject, record.Sender, record.Body,
		string(record.Category), record.CategoryNormalized(), record.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert email %s: %w", record.ID, err)
	}
	return nil
}

// SearchByCategory returns records matching the normalized category,
// most recent first. An empty category matches all records.
func (s *MySQLStore) SearchByCategory(ctx context.Context, categoryNormalized string, limit int) ([]*core.ClassifiedRecord, error) {
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

// Refresh is a no-op; MySQL writes are immediately visible
func (s *MySQLStore) Refresh(ctx context.Context) error {
	return nil
}

// Close closes the underlying database
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
