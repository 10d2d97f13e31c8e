package factory

import (
	"github.com/mikey/email-onebox/internal/adapters/slack"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// NotifierFactory creates notifiers based on configuration
type NotifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger) *NotifierFactory {
	return &NotifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateNotifier creates a notifier based on the configuration. When
// Slack is not configured the alerts are disabled, not the process.
func (f *NotifierFactory) CreateNotifier() core.Notifier {
	slackCfg := f.cfg.GetSlack()
	if !slackCfg.Enabled() {
		f.logger.Warn("Slack token or channel missing, alerts disabled")
		return slack.NewNoopNotifier(f.logger)
	}
	return slack.NewNotifier(slackCfg.Token, slackCfg.Channel, f.logger)
}
