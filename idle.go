package imap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ExistsEvent reports the server's new message count for the selected
// mailbox.
type ExistsEvent struct {
	MessageIndex int
}

// ExpungeEvent reports a message removed from the selected mailbox.
type ExpungeEvent struct {
	MessageIndex int
}

// FetchEvent reports changed message data, typically flag updates.
type FetchEvent struct {
	MessageIndex int
	UID          uint32
	Flags        []string
}

// EventHandler receives unsolicited mailbox events. Callbacks run on their
// own goroutines and must be safe for concurrent use. BYE is not exposed
// here; the engine handles disconnects itself.
type EventHandler struct {
	OnExists  func(event ExistsEvent)
	OnExpunge func(event ExpungeEvent)
	OnFetch   func(event FetchEvent)
}

// SetEventHandler installs the handler for unsolicited mailbox events.
// Passing nil removes it.
func (c *Client) SetEventHandler(h *EventHandler) {
	c.eventsMu.Lock()
	c.events = h
	c.eventsMu.Unlock()
}

var fetchEventRE = regexp.MustCompile(`(?i)^(\d+)\s+FETCH\s+\(([^)]*FLAGS\s*\(([^)]*)\)[^)]*)`)

// dispatchMailboxEvent parses "N EXISTS" / "N EXPUNGE" / "N FETCH (...)"
// payloads and fans them out to the configured handler.
func (c *Client) dispatchMailboxEvent(ev *ServerEvent) {
	c.eventsMu.Lock()
	handler := c.events
	c.eventsMu.Unlock()
	if handler == nil {
		return
	}

	switch ev.Kind {
	case EventExists:
		if handler.OnExists == nil {
			return
		}
		index, err := leadingIndex(ev.Payload)
		if err != nil {
			warnLog(c.sessionID, c.Folder(), "invalid EXISTS event", "payload", ev.Payload)
			return
		}
		go handler.OnExists(ExistsEvent{MessageIndex: index})

	case EventExpunge:
		if handler.OnExpunge == nil {
			return
		}
		index, err := leadingIndex(ev.Payload)
		if err != nil {
			warnLog(c.sessionID, c.Folder(), "invalid EXPUNGE event", "payload", ev.Payload)
			return
		}
		go handler.OnExpunge(ExpungeEvent{MessageIndex: index})

	case EventFetch:
		if handler.OnFetch == nil {
			return
		}
		matches := fetchEventRE.FindStringSubmatch(ev.Payload)
		if len(matches) != 4 {
			warnLog(c.sessionID, c.Folder(), "invalid FETCH event", "payload", ev.Payload)
			return
		}
		index, _ := strconv.Atoi(matches[1])
		uid := fetchEventUID(matches[2])
		flags := strings.FieldsFunc(strings.ReplaceAll(matches[3], `\`, ""), func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})
		go handler.OnFetch(FetchEvent{MessageIndex: index, UID: uid, Flags: flags})
	}
}

// leadingIndex reads the message index that starts an event payload.
func leadingIndex(payload string) (int, error) {
	var index int
	var word string
	if _, err := fmt.Sscanf(payload, "%d %s", &index, &word); err != nil {
		return 0, err
	}
	return index, nil
}

var uidInFetchRE = regexp.MustCompile(`(?i)\bUID\s+(\d+)`)

func fetchEventUID(body string) uint32 {
	matches := uidInFetchRE.FindStringSubmatch(body)
	if len(matches) != 2 {
		return 0
	}
	uid, _ := strconv.Atoi(matches[1])
	return uint32(uid)
}
