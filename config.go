package imap

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
)

// AuthMode selects which authentication handshake Login drives.
type AuthMode int

const (
	// AuthPassword sends LOGIN with the username and password.
	AuthPassword AuthMode = iota
	// AuthXOAuth2 sends AUTHENTICATE XOAUTH2 with an OAuth 2.0 access token.
	AuthXOAuth2
)

// Config carries the per-session settings for Connect and the engine.
// Zero values fall back to the package-level defaults.
type Config struct {
	Host string
	Port int

	AuthMode AuthMode

	// CloseTimeout bounds how long Close waits for LOGOUT before forcing
	// the connection shut. Defaults to DefaultCloseTimeout.
	CloseTimeout time.Duration

	// IdleTimeout is how long the connection may be silent before the
	// engine sends a keepalive NOOP. Defaults to DefaultIdleTimeout;
	// negative disables the watchdog.
	IdleTimeout time.Duration

	// RetryCount overrides the package-level RetryCount for connection
	// establishment. Authentication is never retried.
	RetryCount int

	// SessionID is minted automatically when empty; it only exists so
	// logs from the transport and the engine share one identity.
	SessionID string
}

func (c Config) withDefaults() Config {
	if c.CloseTimeout == 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	if c.RetryCount == 0 {
		c.RetryCount = RetryCount
	}
	if c.SessionID == "" {
		c.SessionID = xid.New().String()
	}
	return c
}

// Connect dials the server over TLS (with establishment retry), consumes
// the server greeting, and returns a client ready for Login. The secret is
// the password for AuthPassword or the access token for AuthXOAuth2.
//
// Connect does not authenticate; call Login (or AwaitLogin) on the result.
func Connect(cfg Config, username, secret string) (*Client, error) {
	cfg = cfg.withDefaults()

	conn, err := dialWithRetry(cfg.Host, cfg.Port, cfg.RetryCount, cfg.SessionID)
	if err != nil {
		return nil, err
	}

	transport := newTLSTransport(conn, cfg.SessionID, cfg.IdleTimeout)

	// The greeting is the one line the server sends unprompted before any
	// command; it never belongs to a command's data.
	greeting, err := transport.readGreeting()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("imap connect greeting: %w", err)
	}
	if !strings.HasPrefix(greeting, "* ") {
		_ = conn.Close()
		return nil, fmt.Errorf("imap connect: unexpected greeting %q", strings.TrimSpace(greeting))
	}
	debugLog(cfg.SessionID, "", "connected", "greeting", strings.TrimSpace(greeting))

	return NewClient(transport, cfg, username, secret), nil
}
