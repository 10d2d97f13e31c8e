package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

const (
	reconnectBaseBackoff = time.Second
	reconnectMaxBackoff  = time.Minute
)

// PipelineOptions holds the tunable knobs for ingestion.
type PipelineOptions struct {
	Folder         string
	BackfillWindow time.Duration
	TruncateLength int
	UpsertRetries  int
	RetryBackoff   time.Duration
	// NotifyCategories is the set of categories worth an alert.
	NotifyCategories []Category
}

// PipelineStats is a snapshot of ingestion counters.
type PipelineStats struct {
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Notified  uint64 `json:"notified"`
}

// IngestionPipeline pulls messages from the mailbox session, runs
// classification, persists results and fans out alerts. Processing is
// strictly sequential within a session: one message in flight,
// records upserted in arrival order.
type IngestionPipeline struct {
	session    MailboxSession
	classifier *ClassifierService
	store      EmailStore
	notifier   Notifier
	text       *utils.TextProcessor
	logger     *zap.Logger
	opts       PipelineOptions

	notifySet map[Category]bool

	processed atomic.Uint64
	dropped   atomic.Uint64
	notified  atomic.Uint64
}

// NewIngestionPipeline creates a new ingestion pipeline.
func NewIngestionPipeline(
	session MailboxSession,
	classifier *ClassifierService,
	store EmailStore,
	notifier Notifier,
	text *utils.TextProcessor,
	logger *zap.Logger,
	opts PipelineOptions,
) *IngestionPipeline {
	if opts.UpsertRetries < 1 {
		opts.UpsertRetries = 1
	}
	notifySet := make(map[Category]bool, len(opts.NotifyCategories))
	for _, c := range opts.NotifyCategories {
		notifySet[c] = true
	}
	return &IngestionPipeline{
		session:    session,
		classifier: classifier,
		store:      store,
		notifier:   notifier,
		text:       text,
		logger:     logger,
		opts:       opts,
		notifySet:  notifySet,
	}
}

// Stats returns a snapshot of the ingestion counters.
func (p *IngestionPipeline) Stats() PipelineStats {
	return PipelineStats{
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
		Notified:  p.notified.Load(),
	}
}

// Run drives the pipeline until the context is cancelled or the
// subsystem is disabled by an authentication failure. Session errors
// trigger reconnects with capped exponential backoff; the idempotent
// upsert absorbs any re-delivery a reconnect causes.
func (p *IngestionPipeline) Run(ctx context.Context) error {
	backoff := reconnectBaseBackoff

	for {
		err := p.runSession(ctx)

		if ctx.Err() != nil {
			p.logger.Info("Ingestion stopped", zap.Any("stats", p.Stats()))
			return nil
		}
		if err == nil {
			// Clean session end (mailbox logout).
			p.logger.Info("Mailbox session ended", zap.Any("stats", p.Stats()))
			return nil
		}

		var authErr *AuthError
		if errors.As(err, &authErr) {
			p.logger.Error("Mailbox credentials rejected, ingestion disabled", zap.Error(authErr))
			return err
		}

		p.logger.Warn("Mailbox session failed, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMaxBackoff {
			backoff = reconnectMaxBackoff
		}
	}
}

// runSession runs one full session: connect, select, backfill, then
// live subscription. Backfill always drains before the live stream
// starts.
func (p *IngestionPipeline) runSession(ctx context.Context) error {
	if err := p.session.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := p.session.Close(); err != nil {
			p.logger.Warn("Failed to close mailbox session", zap.Error(err))
		}
	}()

	if err := p.session.SelectFolder(ctx, p.opts.Folder); err != nil {
		return err
	}

	since := time.Now().Add(-p.opts.BackfillWindow)
	backfill, err := p.session.Backfill(ctx, since)
	if err != nil {
		return err
	}
	before := p.Stats()
	p.drain(ctx, backfill)
	if err := p.session.Err(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	after := p.Stats()
	p.logger.Info("Backfill complete",
		zap.Uint64("processed", after.Processed-before.Processed),
		zap.Uint64("dropped", after.Dropped-before.Dropped),
		zap.Time("since", since))

	live, err := p.session.Subscribe(ctx)
	if err != nil {
		return err
	}
	p.drain(ctx, live)
	return p.session.Err()
}

// drain processes messages from a stream until it closes or the
// context is cancelled. The message currently in flight always
// completes before drain returns.
func (p *IngestionPipeline) drain(ctx context.Context, msgs <-chan Message) {
	for msg := range msgs {
		p.process(ctx, msg)
		if ctx.Err() != nil {
			return
		}
	}
}

// process runs one message through classify -> upsert -> notify. A
// classification failure degrades to Uncategorized inside the
// classifier; a persistence failure after retries drops the message
// with distinct accounting. Errors local to one message never abort
// the stream.
func (p *IngestionPipeline) process(ctx context.Context, msg Message) {
	body := p.text.ProcessText(msg.RawBody, p.opts.TruncateLength)
	category := p.classifier.Classify(ctx, msg.Subject, body)
	record := NewClassifiedRecord(msg, body, category)

	// The in-flight upsert always finishes, even when shutdown has
	// begun.
	if err := p.upsertWithRetry(context.WithoutCancel(ctx), record); err != nil {
		p.dropped.Add(1)
		p.logger.Error("Message dropped after persistence retries",
			zap.String("id", record.ID),
			zap.String("subject", record.Subject),
			zap.Uint64("total_dropped", p.dropped.Load()),
			zap.Error(err))
		return
	}

	if msg.Cursor != 0 {
		p.session.Advance(msg.Cursor)
	}
	p.processed.Add(1)

	switch {
	case category == CategorySpam:
		// Spam never alerts, not even when misconfigured into the
		// notify set.
		p.logger.Info("Spam detected, alert suppressed",
			zap.String("id", record.ID),
			zap.String("sender", record.Sender))
	case p.notifySet[category]:
		if err := p.notifier.Notify(ctx, record); err != nil {
			// Alert failures never abort ingestion.
			p.logger.Warn("Notification failed",
				zap.String("id", record.ID),
				zap.Error(err))
		} else {
			p.notified.Add(1)
		}
	default:
		p.logger.Debug("Message classified",
			zap.String("id", record.ID),
			zap.String("category", string(category)))
	}
}

// upsertWithRetry persists the record with bounded attempts. Upsert
// is idempotent, so retrying is always safe.
func (p *IngestionPipeline) upsertWithRetry(ctx context.Context, record *ClassifiedRecord) error {
	var err error
	attempts := p.opts.UpsertRetries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			p.logger.Debug("Retrying upsert",
				zap.String("id", record.ID),
				zap.Int("attempt", i+1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.opts.RetryBackoff):
			}
		}
		if err = p.store.Upsert(ctx, record); err == nil {
			return nil
		}
	}
	return err
}
