// Package imap implements the session engine of an IMAP client: the layer
// that turns one asynchronous TLS connection into a safe, synchronous-looking
// request/response API.
//
// The engine enforces the protocol's single-outstanding-command discipline,
// correlates tagged responses back to the command that produced them, drives
// the LOGIN/XOAUTH2 handshake, reacts to unsolicited server input (BYE,
// mailbox events, idle timeouts), and shuts down gracefully with a bounded
// logout wait.
//
// Every command submission returns a *Promise that resolves exactly once,
// either with the server's response or with a typed error. Submissions may
// race from any number of goroutines; the engine serializes them so the
// server always sees one command at a time, in admission order.
//
// On top of the engine sit the usual client conveniences: folder listing and
// selection, UID search, overview and full-body fetches with MIME decoding,
// flag stores, and typed callbacks for unsolicited EXISTS/EXPUNGE/FETCH
// events. See the examples directory for end-to-end usage.
package imap
