package imap

import "fmt"

// ResponseCode is the status carried by a tagged response.
type ResponseCode int

const (
	ResponseOK ResponseCode = iota
	ResponseNo
	ResponseBad
)

func (c ResponseCode) String() string {
	switch c {
	case ResponseOK:
		return "OK"
	case ResponseNo:
		return "NO"
	case ResponseBad:
		return "BAD"
	}
	return fmt.Sprintf("ResponseCode(%d)", int(c))
}

// Response is the closed set of inbound message kinds the transport
// delivers to the engine. The three implementations are
// *ContinuationResponse, *TaggedResponse, and *ServerEvent; routing is by
// type switch in the engine, never by inheritance.
type Response interface {
	isResponse()
}

// ContinuationResponse is an intermediate, request-specific server prompt
// ("+ ..."), e.g. awaiting the next step of an AUTHENTICATE exchange. It
// resolves the outstanding command's promise; the caller distinguishes it
// from a final status by inspecting the resolved value.
type ContinuationResponse struct {
	Message string
}

func (*ContinuationResponse) isResponse() {}

// TaggedResponse is the final outcome of the command bearing the matching
// tag. Untagged data lines that arrived since the previous completion are
// carried along in Untagged, in arrival order.
type TaggedResponse struct {
	Tag      int
	Code     ResponseCode
	Message  string
	Untagged []string
}

func (*TaggedResponse) isResponse() {}

// EventKind classifies unsolicited server events.
type EventKind int

const (
	// EventBye is a server-initiated disconnect notice.
	EventBye EventKind = iota
	// EventExists reports a new message count in the selected mailbox.
	EventExists
	// EventExpunge reports a removed message.
	EventExpunge
	// EventFetch reports changed message data (typically flags).
	EventFetch
	// EventInfo is any other untagged line the decoder does not classify.
	EventInfo
)

func (k EventKind) String() string {
	switch k {
	case EventBye:
		return "BYE"
	case EventExists:
		return "EXISTS"
	case EventExpunge:
		return "EXPUNGE"
	case EventFetch:
		return "FETCH"
	}
	return "INFO"
}

// ServerEvent is an unsolicited, untagged server notification. It is never
// tied to a command and never resolves a command promise; the engine routes
// it to lifecycle handling.
type ServerEvent struct {
	Kind    EventKind
	Payload string
}

func (*ServerEvent) isResponse() {}
