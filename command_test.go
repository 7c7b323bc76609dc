package imap

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sqs/go-xoauth2"
	"github.com/stretchr/testify/require"
)

func TestCommandEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
		want string
	}{
		{
			name: "login quotes and escapes credentials",
			cmd:  newCommand(3, CommandLogin, "user@example.com", `pa"ss`),
			want: `t3 LOGIN "user@example.com" "pa\"ss"` + "\r\n",
		},
		{
			name: "logout",
			cmd:  newCommand(0, CommandLogout),
			want: "t0 LOGOUT\r\n",
		},
		{
			name: "noop",
			cmd:  newCommand(9, CommandNoop),
			want: "t9 NOOP\r\n",
		},
		{
			name: "blank is a bare line",
			cmd:  blankCommand(),
			want: "\r\n",
		},
		{
			name: "list",
			cmd:  newCommand(1, CommandList, "", "*"),
			want: `t1 LIST "" "*"` + "\r\n",
		},
		{
			name: "select quotes the mailbox",
			cmd:  newCommand(2, CommandSelect, `funky "quoted" name`),
			want: `t2 SELECT "funky \"quoted\" name"` + "\r\n",
		},
		{
			name: "examine",
			cmd:  newCommand(4, CommandExamine, "INBOX"),
			want: `t4 EXAMINE "INBOX"` + "\r\n",
		},
		{
			name: "raw joins arguments verbatim",
			cmd:  newCommand(5, CommandRaw, "UID", "SEARCH", "UNSEEN"),
			want: "t5 UID SEARCH UNSEEN\r\n",
		},
		{
			name: "raw with no arguments is just the tag",
			cmd:  newCommand(6, CommandRaw),
			want: "t6\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, string(tt.cmd.encode()))
		})
	}
}

func TestCommandEncodeXOAuth2(t *testing.T) {
	cmd := newCommand(0, CommandAuthenticate, "user@example.com", "ya29.token")
	want := fmt.Sprintf("t0 AUTHENTICATE XOAUTH2 %s\r\n", xoauth2.XOAuth2String("user@example.com", "ya29.token"))
	require.Equal(t, want, string(cmd.encode()))
}

func TestCommandRedaction(t *testing.T) {
	login := newCommand(0, CommandLogin, "user@example.com", "hunter2")
	redacted := login.Redacted()
	require.NotContains(t, redacted, "hunter2")
	require.Contains(t, redacted, "****")
	require.Contains(t, redacted, "user@example.com")

	auth := newCommand(1, CommandAuthenticate, "user@example.com", "ya29.token")
	redacted = auth.Redacted()
	require.NotContains(t, redacted, "ya29.token")
	require.NotContains(t, redacted, xoauth2.XOAuth2String("user@example.com", "ya29.token"))
	require.Equal(t, "t1 AUTHENTICATE XOAUTH2 ****", redacted)
}

func TestWireTag(t *testing.T) {
	require.Equal(t, "t0", wireTag(0))
	require.Equal(t, "t1042", wireTag(1042))
}

func TestCommandTypeString(t *testing.T) {
	for typ, want := range map[CommandType]string{
		CommandRaw:          "RAW",
		CommandLogin:        "LOGIN",
		CommandAuthenticate: "AUTHENTICATE",
		CommandLogout:       "LOGOUT",
		CommandNoop:         "NOOP",
		CommandBlank:        "BLANK",
		CommandList:         "LIST",
		CommandSelect:       "SELECT",
		CommandExamine:      "EXAMINE",
	} {
		require.Equal(t, want, typ.String())
	}
}

func TestCommandEncodeEndsWithCRLF(t *testing.T) {
	for _, typ := range []CommandType{CommandRaw, CommandLogin, CommandLogout, CommandNoop, CommandBlank} {
		cmd := newCommand(0, typ, "a", "b")
		require.True(t, strings.HasSuffix(string(cmd.encode()), "\r\n"), "type %s", typ)
	}
}
