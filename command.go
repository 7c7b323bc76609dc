package imap

import (
	"fmt"
	"strings"

	"github.com/sqs/go-xoauth2"
)

// CommandType enumerates the operations the engine knows how to encode.
type CommandType int

const (
	// CommandRaw is a generic typed command: the first argument is the
	// keyword, the rest are sent verbatim.
	CommandRaw CommandType = iota
	CommandLogin
	CommandAuthenticate // AUTHENTICATE XOAUTH2
	CommandLogout
	CommandNoop
	// CommandBlank is the bare CRLF used to unblock a stalled
	// continuation exchange after a rejected AUTHENTICATE.
	CommandBlank
	CommandList
	CommandSelect
	CommandExamine
)

func (t CommandType) String() string {
	switch t {
	case CommandLogin:
		return "LOGIN"
	case CommandAuthenticate:
		return "AUTHENTICATE"
	case CommandLogout:
		return "LOGOUT"
	case CommandNoop:
		return "NOOP"
	case CommandBlank:
		return "BLANK"
	case CommandList:
		return "LIST"
	case CommandSelect:
		return "SELECT"
	case CommandExamine:
		return "EXAMINE"
	}
	return "RAW"
}

// Command is a single outgoing request. Commands are created by the
// client's caller-facing methods, tagged at submission time, and immutable
// afterwards.
type Command struct {
	Tag  int
	Type CommandType
	Args []string
}

// blankTag marks the recovery blank, which is sent without a tag; the
// tagged reply it unblocks carries the aborted command's tag instead.
const blankTag = -1

func newCommand(tag int, typ CommandType, args ...string) *Command {
	return &Command{Tag: tag, Type: typ, Args: args}
}

func blankCommand() *Command {
	return &Command{Tag: blankTag, Type: CommandBlank}
}

// wireTag renders the correlation tag as it appears on the wire.
func wireTag(tag int) string {
	return fmt.Sprintf("t%d", tag)
}

// encode renders the command to its wire form, including the trailing CRLF.
func (c *Command) encode() []byte {
	return []byte(c.wireString(false) + "\r\n")
}

// Redacted returns the wire form with credentials masked, for logging.
func (c *Command) Redacted() string {
	return c.wireString(true)
}

func (c *Command) wireString(redact bool) string {
	switch c.Type {
	case CommandBlank:
		return ""
	case CommandLogin:
		user, pass := c.arg(0), c.arg(1)
		if redact {
			pass = "****"
		}
		return fmt.Sprintf(`%s LOGIN "%s" "%s"`, wireTag(c.Tag), AddSlashes.Replace(user), AddSlashes.Replace(pass))
	case CommandAuthenticate:
		if redact {
			return fmt.Sprintf("%s AUTHENTICATE XOAUTH2 ****", wireTag(c.Tag))
		}
		return fmt.Sprintf("%s AUTHENTICATE XOAUTH2 %s", wireTag(c.Tag), xoauth2.XOAuth2String(c.arg(0), c.arg(1)))
	case CommandLogout, CommandNoop:
		return fmt.Sprintf("%s %s", wireTag(c.Tag), c.Type)
	case CommandList:
		return fmt.Sprintf(`%s LIST "%s" "%s"`, wireTag(c.Tag), AddSlashes.Replace(c.arg(0)), AddSlashes.Replace(c.arg(1)))
	case CommandSelect, CommandExamine:
		return fmt.Sprintf(`%s %s "%s"`, wireTag(c.Tag), c.Type, AddSlashes.Replace(c.arg(0)))
	}
	if len(c.Args) == 0 {
		return wireTag(c.Tag)
	}
	return fmt.Sprintf("%s %s", wireTag(c.Tag), strings.Join(c.Args, " "))
}

func (c *Command) arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}
