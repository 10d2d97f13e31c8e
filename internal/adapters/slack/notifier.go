package slack

import (
	"context"
	"fmt"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Notifier delivers category-triggered alerts to a Slack channel.
type Notifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewNotifier creates a new Slack notifier
func NewNotifier(token, channel string, logger *zap.Logger) *Notifier {
	return &Notifier{
		client:  slack.New(token),
		channel: channel,
		logger:  logger,
	}
}

// Notify posts one alert message. Delivery failures are returned to
// the caller, which logs and moves on; there is no retry.
func (n *Notifier) Notify(ctx context.Context, record *core.ClassifiedRecord) error {
	text := fmt.Sprintf("New %s email: %q from %s",
		record.Category, record.Subject, record.Sender)

	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post Slack message: %w", err)
	}

	n.logger.Info("Slack alert sent",
		zap.String("channel", n.channel),
		zap.String("category", string(record.Category)),
		zap.String("subject", record.Subject))
	return nil
}

// NoopNotifier is used when Slack is not configured: alerts are
// silently skipped so ingestion keeps working without the channel.
type NoopNotifier struct {
	logger *zap.Logger
}

// NewNoopNotifier creates a notifier that drops all alerts
func NewNoopNotifier(logger *zap.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

// Notify logs the skipped alert at debug level and succeeds
func (n *NoopNotifier) Notify(ctx context.Context, record *core.ClassifiedRecord) error {
	n.logger.Debug("Slack not configured, alert skipped",
		zap.String("category", string(record.Category)),
		zap.String("subject", record.Subject))
	return nil
}
