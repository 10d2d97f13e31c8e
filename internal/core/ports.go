package core

import (
	"context"
	"time"
)

// CompletionRequest is a single request to a text-completion backend.
// Model-level knobs (model name, top-p, timeout) live in the client;
// generation knobs vary per call site.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// CompletionClient defines the interface for text-completion services
type CompletionClient interface {
	// Complete issues one completion request and returns the raw text
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// EmailStore defines the interface for the searchable document store
type EmailStore interface {
	// EnsureSchema prepares the backing schema. Safe to call when the
	// schema already exists; never destructive.
	EnsureSchema(ctx context.Context) error

	// Upsert inserts or fully replaces the record keyed by its ID
	Upsert(ctx context.Context, record *ClassifiedRecord) error

	// SearchByCategory returns records matching the normalized
	// category key, most recent first, bounded by limit. An empty
	// category matches all records.
	SearchByCategory(ctx context.Context, categoryNormalized string, limit int) ([]*ClassifiedRecord, error)

	// Refresh makes recent writes visible to subsequent reads
	Refresh(ctx context.Context) error
}

// Notifier defines the interface for category-triggered alerts
type Notifier interface {
	// Notify delivers an alert for the record. Callers treat delivery
	// as fire-and-forget: failures are logged, never retried.
	Notify(ctx context.Context, record *ClassifiedRecord) error
}

// MailboxSession manages the connection lifecycle to a remote mailbox:
// connect, select folder, bounded historical backfill, then live
// new-message subscription.
type MailboxSession interface {
	// Connect establishes and authenticates the connection
	Connect(ctx context.Context) error

	// SelectFolder selects the mailbox folder to stream from
	SelectFolder(ctx context.Context, name string) error

	// Backfill streams messages received since the given time, oldest
	// first, one message in flight at a time. The channel closes when
	// the backfill is drained, the context is cancelled, or the
	// session fails; check Err afterwards.
	Backfill(ctx context.Context, since time.Time) (<-chan Message, error)

	// Subscribe streams messages as they arrive. The channel closes
	// when the session ends or the context is cancelled; check Err
	// afterwards.
	Subscribe(ctx context.Context) (<-chan Message, error)

	// Advance moves the durable cursor forward. Called by the consumer
	// only after the message with that cursor was durably persisted.
	Advance(cursor uint32)

	// Err returns the terminal session error, if any, after a stream
	// channel has closed.
	Err() error

	// Close releases the session cleanly (logout)
	Close() error
}
