package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

const dialTimeout = 30 * time.Second

// Session implements core.MailboxSession over IMAP with TLS. One
// session streams one folder of one account: a bounded historical
// backfill first, then live delivery driven by IDLE.
type Session struct {
	host               string
	port               int
	username           string
	password           string
	insecureSkipVerify bool
	idleTimeout        time.Duration
	logger             *zap.Logger

	client *imapclient.Client

	// newMail is signalled by unilateral EXISTS updates during IDLE.
	newMail chan struct{}

	mu sync.Mutex
	// watermark is the durable cursor: the highest UID the consumer
	// confirmed as persisted. It only moves through Advance.
	watermark uint32
	// lastDelivered is the highest UID handed to the consumer. Live
	// fetches resume above it so one session never re-delivers;
	// across sessions the idempotent upsert absorbs overlap.
	lastDelivered uint32
	err           error
}

// NewSession creates a new IMAP mailbox session
func NewSession(host string, port int, username, password string, insecureSkipVerify bool, idleTimeout time.Duration, logger *zap.Logger) *Session {
	if idleTimeout <= 0 {
		// Servers may drop IDLE connections after 30 minutes; re-issue
		// well before that.
		idleTimeout = 20 * time.Minute
	}
	return &Session{
		host:               host,
		port:               port,
		username:           username,
		password:           password,
		insecureSkipVerify: insecureSkipVerify,
		idleTimeout:        idleTimeout,
		logger:             logger,
		newMail:            make(chan struct{}, 1),
	}
}

// Connect resolves, dials and authenticates the IMAP connection.
// Credential rejection surfaces as core.AuthError; everything else as
// core.SessionError.
func (s *Session) Connect(ctx context.Context) error {
	// Pin resolution to IPv4. Dual-stack hosts intermittently stall
	// the TLS dial when the AAAA path is unreachable.
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", s.host)
	if err != nil {
		return &core.SessionError{Op: "resolve", Err: err}
	}
	if len(ips) == 0 {
		return &core.SessionError{Op: "resolve", Err: fmt.Errorf("no IPv4 address for %s", s.host)}
	}

	tlsConfig := &tls.Config{ServerName: s.host}
	if s.insecureSkipVerify {
		s.logger.Warn("TLS certificate verification disabled for mailbox connection",
			zap.String("host", s.host))
		tlsConfig.InsecureSkipVerify = true
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	addr := net.JoinHostPort(ips[0].String(), strconv.Itoa(s.port))
	conn, err := dialer.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return &core.SessionError{Op: "dial", Err: err}
	}

	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return &core.SessionError{Op: "tls handshake", Err: err}
	}

	options := &imapclient.Options{
		UnilateralDataHandler: &imapclient.UnilateralDataHandler{
			Mailbox: func(data *imapclient.UnilateralDataMailbox) {
				if data.NumMessages != nil {
					select {
					case s.newMail <- struct{}{}:
					default:
					}
				}
			},
		},
	}
	client := imapclient.New(tlsConn, options)

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return &core.AuthError{Subsystem: "imap", Err: err}
	}

	s.client = client
	s.logger.Info("Mailbox connected",
		zap.String("host", s.host),
		zap.String("username", s.username))
	return nil
}

// SelectFolder selects the folder to stream from and initializes the
// live-delivery floor from the mailbox's UIDNEXT.
func (s *Session) SelectFolder(ctx context.Context, name string) error {
	data, err := s.client.Select(name, nil).Wait()
	if err != nil {
		return &core.SessionError{Op: "select " + name, Err: err}
	}

	s.mu.Lock()
	if data.UIDNext > 1 {
		s.lastDelivered = uint32(data.UIDNext) - 1
	}
	s.mu.Unlock()

	s.logger.Info("Mailbox folder selected",
		zap.String("folder", name),
		zap.Uint32("messages", data.NumMessages))
	return nil
}

// Backfill streams messages received since the given time, oldest
// first. Fetches run one UID at a time so at most one message is in
// flight.
func (s *Session) Backfill(ctx context.Context, since time.Time) (<-chan core.Message, error) {
	data, err := s.client.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, &core.SessionError{Op: "search", Err: err}
	}
	uids := data.AllUIDs()

	out := make(chan core.Message)
	go func() {
		defer close(out)
		for _, uid := range uids {
			msg, err := s.fetchOne(uid)
			if err != nil {
				// Malformed or vanished message: skip it, keep the
				// stream alive.
				s.logger.Warn("Skipping unreadable message",
					zap.Uint32("uid", uint32(uid)),
					zap.Error(err))
				continue
			}
			select {
			case out <- msg:
				s.markDelivered(uint32(uid))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Subscribe streams new messages as the server announces them. Each
// cycle drains anything above the delivery floor, then parks in IDLE
// until the server signals new mail or the idle timeout forces a
// refresh.
func (s *Session) Subscribe(ctx context.Context) (<-chan core.Message, error) {
	out := make(chan core.Message)
	go func() {
		defer close(out)
		for {
			if err := s.deliverNew(ctx, out); err != nil {
				s.setErr(err)
				return
			}
			if ctx.Err() != nil {
				return
			}

			idleCmd, err := s.client.Idle()
			if err != nil {
				s.setErr(&core.SessionError{Op: "idle", Err: err})
				return
			}

			select {
			case <-ctx.Done():
				_ = idleCmd.Close()
				_ = idleCmd.Wait()
				return
			case <-s.newMail:
			case <-time.After(s.idleTimeout):
			}

			if err := idleCmd.Close(); err != nil {
				s.setErr(&core.SessionError{Op: "idle stop", Err: err})
				return
			}
			if err := idleCmd.Wait(); err != nil {
				s.setErr(&core.SessionError{Op: "idle", Err: err})
				return
			}
		}
	}()
	return out, nil
}

// deliverNew fetches and emits every message above the delivery floor.
func (s *Session) deliverNew(ctx context.Context, out chan<- core.Message) error {
	s.mu.Lock()
	floor := s.lastDelivered
	s.mu.Unlock()

	var set imap.UIDSet
	set.AddRange(imap.UID(floor+1), 0)
	data, err := s.client.UIDSearch(&imap.SearchCriteria{UID: []imap.UIDSet{set}}, nil).Wait()
	if err != nil {
		return &core.SessionError{Op: "search new", Err: err}
	}

	for _, uid := range data.AllUIDs() {
		if uint32(uid) <= floor {
			continue
		}
		msg, err := s.fetchOne(uid)
		if err != nil {
			s.logger.Warn("Skipping unreadable message",
				zap.Uint32("uid", uint32(uid)),
				zap.Error(err))
			s.markDelivered(uint32(uid))
			continue
		}
		select {
		case out <- msg:
			s.markDelivered(uint32(uid))
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// fetchOne fetches a single message with envelope and body.
func (s *Session) fetchOne(uid imap.UID) (core.Message, error) {
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		Envelope:     true,
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return core.Message{}, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return core.Message{}, fmt.Errorf("collecting message UID %d: %w", uid, err)
	}

	return messageFromBuffer(buf, bodySection), nil
}

// Advance moves the durable cursor forward. Only the consumer calls
// this, and only after the message was persisted.
func (s *Session) Advance(cursor uint32) {
	s.mu.Lock()
	if cursor > s.watermark {
		s.watermark = cursor
	}
	s.mu.Unlock()
}

// Cursor returns the durable cursor.
func (s *Session) Cursor() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// Err returns the terminal session error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close logs out and releases the connection.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil

	s.mu.Lock()
	watermark := s.watermark
	s.mu.Unlock()
	s.logger.Info("Mailbox session closing", zap.Uint32("cursor", watermark))

	if err := client.Logout().Wait(); err != nil {
		return &core.SessionError{Op: "logout", Err: err}
	}
	return nil
}

func (s *Session) markDelivered(uid uint32) {
	s.mu.Lock()
	if uid > s.lastDelivered {
		s.lastDelivered = uid
	}
	s.mu.Unlock()
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}
