package imap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// SessionState is the connection phase of one session.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected // connected, not authenticated
	StateAuthenticating
	StateAuthenticated
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// writeRequest pairs a command with its completion handle on the way to
// the writer goroutine.
type writeRequest struct {
	cmd     *Command
	promise *Promise[Response]
}

// Client is the session engine: one instance per connection. It serializes
// command submission so exactly one command is outstanding at a time,
// correlates tagged responses to that command, drives authentication, and
// owns graceful shutdown.
//
// All exported methods are safe for concurrent use.
type Client struct {
	cfg       Config
	transport Transport
	sessionID string
	username  string
	secret    string

	tagSeq atomic.Int64

	// submitMu serializes the check-wait-install sequence in submit so two
	// racing submitters can never both observe a free command slot.
	submitMu sync.Mutex
	last     *Promise[Response] // previous command's handle; guarded by submitMu

	// stateMu guards session state, the outstanding-command slot, and the
	// selected-mailbox bookkeeping. The slot is written only by the writer
	// goroutine and by teardown.
	stateMu  sync.Mutex
	state    SessionState
	current  *Command
	pending  *Promise[Response]
	folder   string
	readOnly bool

	// login resolves exactly once, on the first authentication outcome.
	login        *Promise[*TaggedResponse]
	loginStarted atomic.Bool

	events   *EventHandler
	eventsMu sync.Mutex

	writeQ    chan writeRequest
	closed    chan struct{}
	closeOnce sync.Once
}

// NewClient wraps an already-established transport in a session engine.
// Most callers use Connect instead; NewClient exists for custom transports.
func NewClient(transport Transport, cfg Config, username, secret string) *Client {
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:       cfg,
		transport: transport,
		sessionID: cfg.SessionID,
		username:  username,
		secret:    secret,
		state:     StateConnected,
		login:     newPromise[*TaggedResponse](),
		writeQ:    make(chan writeRequest),
		closed:    make(chan struct{}),
	}

	go c.writeLoop()
	transport.Start(c)
	return c
}

// SessionID identifies this session in logs.
func (c *Client) SessionID() string { return c.sessionID }

// State returns the current session state.
func (c *Client) State() SessionState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Client) setState(s SessionState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// Folder returns the currently selected mailbox, if any.
func (c *Client) Folder() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.folder
}

func (c *Client) setFolder(folder string, readOnly bool) {
	c.stateMu.Lock()
	c.folder = folder
	c.readOnly = readOnly
	c.stateMu.Unlock()
}

// nextTag assigns the next correlation tag: strictly increasing from 0,
// never reused for the lifetime of the session.
func (c *Client) nextTag() int {
	return int(c.tagSeq.Add(1) - 1)
}

// Submit sends a typed command and returns its completion handle. The
// handle resolves with the command's final *TaggedResponse, or with a
// *ContinuationResponse if the server asks for more input, or with an
// error. Submit may be called from any goroutine; effects are serialized.
func (c *Client) Submit(typ CommandType, args ...string) (*Promise[Response], error) {
	return c.submit(newCommand(c.nextTag(), typ, args...))
}

// submit admits one command past the single-outstanding-command gate and
// hands it to the writer goroutine. It blocks until the previous command's
// handle resolves (either outcome releases the slot), never until its own.
func (c *Client) submit(cmd *Command) (*Promise[Response], error) {
	if !c.transport.IsOpen() {
		return nil, ErrConnectionClosed
	}

	p := newPromise[Response]()

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	if c.last != nil {
		select {
		case <-c.last.Done():
		case <-c.closed:
			return nil, ErrConnectionClosed
		}
	}

	if !c.transport.IsOpen() {
		return nil, ErrConnectionClosed
	}

	select {
	case c.writeQ <- writeRequest{cmd: cmd, promise: p}:
		c.last = p
		return p, nil
	case <-c.closed:
		return nil, ErrConnectionClosed
	}
}

// writeLoop is the session's ordering context: the only goroutine that
// installs the outstanding-command slot and writes to the transport, so
// writes can never interleave even when submitters race.
func (c *Client) writeLoop() {
	for {
		select {
		case req := <-c.writeQ:
			c.stateMu.Lock()
			c.current = req.cmd
			c.pending = req.promise
			folder := c.folder
			c.stateMu.Unlock()

			if Verbose {
				debugLog(c.sessionID, folder, "sending command", "command", req.cmd.Redacted())
			}

			if err := c.transport.Write(req.cmd.encode()); err != nil {
				req.promise.fail(err)
				if !errors.Is(err, ErrConnectionClosed) {
					errorLog(c.sessionID, folder, "write failed", "error", err)
				}
				c.teardown(ErrConnectionClosed)
			}
		case <-c.closed:
			return
		}
	}
}

// HandleMessage routes one decoded inbound message. Continuation and
// tagged responses resolve the outstanding handle; events go to lifecycle
// handling and never touch a command handle.
func (c *Client) HandleMessage(msg Response) {
	switch m := msg.(type) {
	case *ContinuationResponse:
		_, p := c.outstanding()
		if p == nil {
			errorLog(c.sessionID, c.Folder(), "protocol violation: continuation with no command outstanding", "message", m.Message)
			return
		}
		p.complete(m)

	case *TaggedResponse:
		cmd, p := c.outstanding()
		if p == nil {
			errorLog(c.sessionID, c.Folder(), "protocol violation: tagged response with no command outstanding", "tag", m.Tag)
			return
		}
		// The recovery blank is sent untagged; its reply carries the
		// aborted command's tag, so the assert is skipped for it.
		if cmd.Tag != blankTag && m.Tag != cmd.Tag {
			errorLog(c.sessionID, c.Folder(), "protocol violation: tag mismatch", "expected", cmd.Tag, "got", m.Tag)
			p.fail(&ProtocolViolationError{ExpectedTag: cmd.Tag, GotTag: m.Tag})
			return
		}
		p.complete(m)

	case *ServerEvent:
		c.handleEvent(m)
	}
}

// outstanding returns the current command and its handle, or nils when no
// command is awaiting a response.
func (c *Client) outstanding() (*Command, *Promise[Response]) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.pending == nil || c.pending.Resolved() {
		return nil, nil
	}
	return c.current, c.pending
}

func (c *Client) handleEvent(ev *ServerEvent) {
	switch ev.Kind {
	case EventBye:
		c.stateMu.Lock()
		cmd := c.current
		c.stateMu.Unlock()

		// BYE during logout is the expected close path; anything else
		// means the server is walking away, so close our side rather
		// than waiting for the peer.
		if cmd != nil && cmd.Type == CommandLogout {
			debugLog(c.sessionID, c.Folder(), "server bye during logout", "payload", ev.Payload)
			return
		}
		if c.transport.IsOpen() {
			warnLog(c.sessionID, c.Folder(), "server closed the session", "payload", ev.Payload)
			c.teardown(ErrConnectionClosed)
		}

	case EventExists, EventExpunge, EventFetch:
		c.dispatchMailboxEvent(ev)

	default:
		debugLog(c.sessionID, c.Folder(), "untagged info", "payload", ev.Payload)
	}
}

// HandleIdle reacts to the transport's no-traffic notification with a
// keepalive NOOP. It is a liveness probe, not a state transition.
func (c *Client) HandleIdle() {
	go func() {
		if _, err := c.Noop(); err != nil && !errors.Is(err, ErrConnectionClosed) {
			warnLog(c.sessionID, c.Folder(), "keepalive dispatch failed", "error", err)
		}
	}()
}

// HandleFatal reacts to an unrecoverable transport failure.
func (c *Client) HandleFatal(err error) {
	errorLog(c.sessionID, c.Folder(), "transport failure", "error", err)
	c.teardown(err)
}

// teardown is the terminal transition: close the transport, fail whatever
// is in flight so no caller is left hanging, and mark the session closed.
// Idempotent.
func (c *Client) teardown(cause error) {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.closed)
		_ = c.transport.Close()

		c.stateMu.Lock()
		p := c.pending
		c.stateMu.Unlock()
		if p != nil {
			p.fail(cause)
		}

		// Unblocks AwaitLogin on sessions that died before (or during)
		// authentication; a no-op once the login handle has resolved.
		if c.loginStarted.Load() {
			c.login.fail(cause)
		} else {
			c.login.fail(ErrLoginNotAttempted)
		}
	})
}

// Login drives the authentication handshake chosen by the configured auth
// mode and returns the auth command's completion handle. The session-wide
// login outcome is observed via AwaitLogin / IsLoggedIn.
func (c *Client) Login() (*Promise[Response], error) {
	c.loginStarted.Store(true)
	c.setState(StateAuthenticating)

	var (
		p   *Promise[Response]
		err error
	)
	switch c.cfg.AuthMode {
	case AuthXOAuth2:
		p, err = c.submit(newCommand(c.nextTag(), CommandAuthenticate, c.username, c.secret))
	default:
		p, err = c.submit(newCommand(c.nextTag(), CommandLogin, c.username, c.secret))
	}
	if err != nil {
		c.login.fail(err)
		return nil, err
	}

	go c.classifyLogin(p)
	return p, nil
}

// classifyLogin performs the one terminal resolution of the login handle
// from the auth command's outcome: BAD or a rejection continuation fail
// it, anything else succeeds. On failure a blank command is dispatched to
// unblock the stalled exchange.
func (c *Client) classifyLogin(p *Promise[Response]) {
	resp, err := p.Await(context.Background())
	if err != nil {
		// Not a credential rejection; propagate the transport/protocol
		// error as-is.
		c.login.fail(err)
		return
	}

	switch r := resp.(type) {
	case *ContinuationResponse:
		c.failLogin(authFailedFromContinuation(r.Message))
	case *TaggedResponse:
		if r.Code == ResponseBad {
			c.failLogin(&AuthenticationFailedError{Message: r.Message})
			return
		}
		if c.login.complete(r) {
			c.setState(StateAuthenticated)
			debugLog(c.sessionID, "", "authenticated", "user", c.username)
		}
	}
}

func (c *Client) failLogin(authErr *AuthenticationFailedError) {
	if !c.login.fail(authErr) {
		return
	}
	c.setState(StateConnected)
	warnLog(c.sessionID, "", "authentication failed", "error", authErr.Message)

	// Protocol-recovery nudge: a stalled AUTHENTICATE exchange only
	// terminates once the client sends a bare line.
	go func() {
		if _, err := c.submit(blankCommand()); err != nil && !errors.Is(err, ErrConnectionClosed) {
			warnLog(c.sessionID, "", "recovery blank dispatch failed", "error", err)
		}
	}()
}

// IsLoggedIn reports whether authentication succeeded and the connection
// is still open. Point-in-time check; never blocks.
func (c *Client) IsLoggedIn() bool {
	return c.login.Succeeded() && c.transport.IsOpen()
}

// AwaitLogin blocks until the login handle resolves, returning nil on
// success or the recorded authentication failure.
func (c *Client) AwaitLogin(ctx context.Context) error {
	_, err := c.login.Await(ctx)
	return err
}

// Logout dispatches LOGOUT and returns its completion handle unchanged.
func (c *Client) Logout() (*Promise[Response], error) {
	c.setState(StateClosing)
	return c.submit(newCommand(c.nextTag(), CommandLogout))
}

// Noop dispatches a keepalive NOOP.
func (c *Client) Noop() (*Promise[Response], error) {
	return c.submit(newCommand(c.nextTag(), CommandNoop))
}

// Close shuts the session down. A logged-in session gets a LOGOUT first,
// waited on up to the configured CloseTimeout; the connection is closed
// regardless of that wait's outcome. Safe to call repeatedly, including
// on sessions that are already closing.
func (c *Client) Close() error {
	if c.IsLoggedIn() {
		if p, err := c.Logout(); err == nil {
			t := time.NewTimer(c.cfg.CloseTimeout)
			select {
			case <-p.Done():
				t.Stop()
			case <-t.C:
				warnLog(c.sessionID, c.Folder(), "logout did not complete before timeout, closing anyway",
					"timeout", c.cfg.CloseTimeout)
			}
		}
	}
	c.teardown(ErrConnectionClosed)
	return nil
}
