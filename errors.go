package imap

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrConnectionClosed is returned by Submit (and friends) when the
// underlying connection is not open. No write is attempted.
var ErrConnectionClosed = errors.New("imap: connection closed")

// ErrLoginNotAttempted is returned by AwaitLogin when the session is torn
// down before Login was ever called.
var ErrLoginNotAttempted = errors.New("imap: login never attempted")

// AuthenticationFailedError is how the login promise reports rejected
// credentials. It is never surfaced anywhere else.
type AuthenticationFailedError struct {
	Message string
}

func (e *AuthenticationFailedError) Error() string {
	return fmt.Sprintf("imap: authentication failed: %s", e.Message)
}

// authFailedFromContinuation builds the failure for a continuation the
// server used to reject credentials. XOAUTH2 rejections carry a base64
// JSON payload in the continuation; decode it when possible so the caller
// sees the server's actual complaint.
func authFailedFromContinuation(message string) *AuthenticationFailedError {
	if decoded, err := base64.StdEncoding.DecodeString(message); err == nil && len(decoded) > 0 {
		return &AuthenticationFailedError{Message: string(decoded)}
	}
	return &AuthenticationFailedError{Message: message}
}

// ProtocolViolationError reports inbound data that breaks the tag
// correlation contract: a tagged response whose tag does not match the
// outstanding command, or a response arriving with no command in flight.
type ProtocolViolationError struct {
	ExpectedTag int
	GotTag      int
	Line        string
}

func (e *ProtocolViolationError) Error() string {
	if e.ExpectedTag < 0 {
		return fmt.Sprintf("imap: protocol violation: response with tag %d but no command outstanding", e.GotTag)
	}
	return fmt.Sprintf("imap: protocol violation: expected tag %d, got %d", e.ExpectedTag, e.GotTag)
}

// CommandFailedError is returned by the typed helpers (folders, search,
// store...) when a command completes with a NO or BAD status.
type CommandFailedError struct {
	Command string
	Code    ResponseCode
	Message string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("imap: %s failed: %s %s", e.Command, e.Code, e.Message)
}
