package imap

import (
	"bufio"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/StirlingMarketingGroup/go-retry"
)

// Transport is the ordered byte pipe the engine writes commands to. The
// engine installs itself as the handler via Start; after that the transport
// delivers every decoded inbound message, idle notifications, and fatal
// read failures to the handler, in arrival order, from a single goroutine.
type Transport interface {
	// Start begins inbound delivery to the handler. Called exactly once.
	Start(h TransportHandler)

	// Write enqueues the encoded bytes of one command. Ordering between
	// writes on the same transport is preserved.
	Write(p []byte) error

	// Close terminates the connection. Safe to call multiple times.
	Close() error

	// IsOpen reports whether the connection is still usable.
	IsOpen() bool
}

// TransportHandler receives inbound traffic and lifecycle notifications
// from a Transport. *Client implements it.
type TransportHandler interface {
	HandleMessage(msg Response)
	HandleIdle()
	HandleFatal(err error)
}

// tlsTransport is the production Transport: one TLS connection, a reader
// goroutine feeding the decoder, and an idle watchdog.
type tlsTransport struct {
	conn        *tls.Conn
	r           *bufio.Reader
	sessionID   string
	idleTimeout time.Duration

	lastActivity atomic.Int64 // unix nanos

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
	done      chan struct{}
}

func newTLSTransport(conn *tls.Conn, sessionID string, idleTimeout time.Duration) *tlsTransport {
	t := &tlsTransport{
		conn:        conn,
		r:           bufio.NewReader(conn),
		sessionID:   sessionID,
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	t.touch()
	return t
}

// readGreeting consumes the server's unprompted greeting line. It must be
// called before Start so the greeting is never mistaken for command data.
func (t *tlsTransport) readGreeting() (string, error) {
	line, err := t.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	t.touch()
	return line, nil
}

// dialHost establishes a TLS connection to the IMAP server
func dialHost(host string, port int) (*tls.Conn, error) {
	dialer := &net.Dialer{Timeout: DialTimeout}
	var cfg *tls.Config
	if TLSSkipVerify {
		cfg = &tls.Config{InsecureSkipVerify: true}
	}
	return tls.DialWithDialer(dialer, "tcp", host+":"+strconv.Itoa(port), cfg)
}

// dialWithRetry retries only the connection establishment, never anything
// the caller does with the connection afterwards.
func dialWithRetry(host string, port int, retryCount int, sessionID string) (conn *tls.Conn, err error) {
	err = retry.Retry(func() error {
		debugLog(sessionID, "", "establishing connection", "host", host, "port", port)
		conn, err = dialHost(host, port)
		if err != nil {
			debugLog(sessionID, "", "failed to connect", "error", err)
			return err
		}
		return nil
	}, retryCount, func(err error) error {
		debugLog(sessionID, "", "failed to connect, retrying shortly")
		if conn != nil {
			_ = conn.Close()
		}
		return nil
	}, func() error {
		debugLog(sessionID, "", "retrying connection now")
		return nil
	})
	if err != nil {
		errorLog(sessionID, "", "failed to establish connection", "error", err)
		return nil, err
	}
	return conn, nil
}

func (t *tlsTransport) Start(h TransportHandler) {
	go t.readLoop(h)
	if t.idleTimeout > 0 {
		go t.idleLoop(h)
	}
}

func (t *tlsTransport) Write(p []byte) error {
	if t.closed.Load() {
		return ErrConnectionClosed
	}
	t.touch()
	if _, err := t.conn.Write(p); err != nil {
		return err
	}
	return nil
}

func (t *tlsTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		close(t.done)
		t.closeErr = t.conn.Close()
		debugLog(t.sessionID, "", "closing connection")
	})
	return t.closeErr
}

func (t *tlsTransport) IsOpen() bool {
	return !t.closed.Load()
}

func (t *tlsTransport) touch() {
	t.lastActivity.Store(time.Now().UnixNano())
}

// readLoop assembles logical lines (including {n} literal continuations),
// decodes them, and hands each decoded message to the handler.
func (t *tlsTransport) readLoop(h TransportHandler) {
	dec := &decoder{}

	for {
		line, err := readLogicalLine(t.r)
		if err != nil {
			if t.closed.Load() {
				return
			}
			h.HandleFatal(err)
			return
		}

		t.touch()

		if Verbose && !SkipResponses {
			debugLog(t.sessionID, "", "server response", "response", string(dropNl(line)))
		}

		if msg := dec.decode(string(line)); msg != nil {
			h.HandleMessage(msg)
		}
	}
}

// idleLoop notifies the handler when no traffic has occurred for the
// configured interval. The handler reacts with a keepalive; the loop keeps
// running until the transport closes.
func (t *tlsTransport) idleLoop(h TransportHandler) {
	ticker := time.NewTicker(t.idleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			last := time.Unix(0, t.lastActivity.Load())
			if time.Since(last) >= t.idleTimeout {
				h.HandleIdle()
			}
		case <-t.done:
			return
		}
	}
}

// readLogicalLine reads one response line, folding in any {n} literal
// continuations so the decoder always sees a complete logical line.
func readLogicalLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	for {
		a := atom.Find(dropNl(line))
		if a == nil {
			break
		}

		n, err := strconv.Atoi(string(a[1 : len(a)-1]))
		if err != nil {
			return nil, err
		}

		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		line = append(line, buf...)

		buf, err = r.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		line = append(line, buf...)
	}

	return line, nil
}
