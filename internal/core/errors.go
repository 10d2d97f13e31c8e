package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record is not present in the store.
var ErrNotFound = errors.New("record not found")

// ErrLLMDisabled is returned when no completion provider is configured.
var ErrLLMDisabled = errors.New("no completion provider configured")

// SessionError indicates the mailbox session failed to establish or
// terminated unexpectedly. The orchestrator decides whether to
// reconnect.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("mailbox session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// AuthError indicates credentials were rejected or missing. The
// dependent subsystem is disabled rather than retried.
type AuthError struct {
	Subsystem string
	Err       error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Subsystem, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
