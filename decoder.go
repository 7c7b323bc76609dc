package imap

import (
	"strconv"
	"strings"
)

// decoder turns complete logical wire lines (literals already assembled by
// the transport read loop) into Response values for the engine.
//
// Untagged data lines are not delivered on their own: they accumulate and
// ride along on the next tagged completion, which is how LIST, SELECT and
// FETCH results reach the command that asked for them. Mailbox status
// lines (EXISTS/EXPUNGE/FETCH) additionally surface as server events, and
// BYE is always an event.
type decoder struct {
	untagged []string
}

// decode classifies one logical line. It returns nil when the line only
// accumulated data and there is nothing to deliver.
func (d *decoder) decode(line string) Response {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case strings.HasPrefix(line, "+"):
		return &ContinuationResponse{Message: strings.TrimSpace(line[1:])}

	case strings.HasPrefix(line, "* "):
		return d.decodeUntagged(line[2:])

	default:
		return d.decodeTagged(line)
	}
}

func (d *decoder) decodeUntagged(rest string) Response {
	word, tail := splitWord(rest)

	if word == "BYE" {
		return &ServerEvent{Kind: EventBye, Payload: tail}
	}

	// Mailbox status lines ("* 4 EXISTS") double as data for the command
	// in flight and as unsolicited events for the caller's handler.
	if _, err := strconv.Atoi(word); err == nil {
		d.untagged = append(d.untagged, rest)
		switch kind, _ := splitWord(tail); kind {
		case "EXISTS":
			return &ServerEvent{Kind: EventExists, Payload: rest}
		case "EXPUNGE":
			return &ServerEvent{Kind: EventExpunge, Payload: rest}
		case "FETCH":
			return &ServerEvent{Kind: EventFetch, Payload: rest}
		}
		return nil
	}

	d.untagged = append(d.untagged, rest)
	return nil
}

func (d *decoder) decodeTagged(line string) Response {
	tagWord, rest := splitWord(line)
	if len(tagWord) < 2 || tagWord[0] != 't' {
		// Not a line shape we know; surface it as an informational event
		// so the engine can at least log it.
		return &ServerEvent{Kind: EventInfo, Payload: line}
	}

	tag, err := strconv.Atoi(tagWord[1:])
	if err != nil {
		return &ServerEvent{Kind: EventInfo, Payload: line}
	}

	codeWord, message := splitWord(rest)
	code, ok := parseResponseCode(codeWord)
	if !ok {
		return &ServerEvent{Kind: EventInfo, Payload: line}
	}

	resp := &TaggedResponse{
		Tag:      tag,
		Code:     code,
		Message:  message,
		Untagged: d.untagged,
	}
	d.untagged = nil
	return resp
}

func parseResponseCode(word string) (ResponseCode, bool) {
	switch word {
	case "OK":
		return ResponseOK, true
	case "NO":
		return ResponseNo, true
	case "BAD":
		return ResponseBad, true
	}
	return 0, false
}

// splitWord splits off the first space-delimited word.
func splitWord(s string) (word, rest string) {
	if i := strings.IndexByte(s, ' '); i != -1 {
		return s[:i], s[i+1:]
	}
	return s, ""
}
