package factory

import (
	"github.com/mikey/email-onebox/internal/adapters/imap"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// SessionFactory creates mailbox sessions based on configuration
type SessionFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSessionFactory creates a new session factory
func NewSessionFactory(cfg *config.Config, logger *zap.Logger) *SessionFactory {
	return &SessionFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailboxSession creates a mailbox session, or nil when mailbox
// credentials are missing: the app then runs without email syncing.
func (f *SessionFactory) CreateMailboxSession() core.MailboxSession {
	imapCfg := f.cfg.GetIMAP()
	if !imapCfg.Enabled() {
		f.logger.Warn("Mailbox credentials missing, email syncing disabled")
		return nil
	}
	return imap.NewSession(
		imapCfg.Host,
		imapCfg.Port,
		imapCfg.Username,
		imapCfg.Password,
		imapCfg.InsecureSkipVerify,
		imapCfg.IdleTimeout,
		f.logger,
	)
}
