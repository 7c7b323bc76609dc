package imap

import (
	"strings"
	"time"
)

// String replacers for escaping/unescaping quotes
var (
	AddSlashes    = strings.NewReplacer(`"`, `\"`)
	RemoveSlashes = strings.NewReplacer(`\"`, `"`)
)

// Verbose outputs every command and its response with the IMAP server
var Verbose = false

// SkipResponses skips printing server responses in verbose mode
var SkipResponses = false

// RetryCount is the number of times connection establishment is retried.
// Authentication is never retried.
var RetryCount = 10

// DialTimeout defines how long to wait when establishing a new connection.
// Zero means no timeout.
var DialTimeout time.Duration

// DefaultCloseTimeout bounds how long Close waits for the LOGOUT command to
// resolve before the connection is forcibly closed anyway.
var DefaultCloseTimeout = 10 * time.Second

// DefaultIdleTimeout is how long the transport may sit with no traffic
// before the engine sends a keepalive NOOP.
var DefaultIdleTimeout = 3 * time.Minute

// TLSSkipVerify disables certificate verification when establishing new
// connections. Use with caution; skipping verification exposes the
// connection to man-in-the-middle attacks.
var TLSSkipVerify bool
