package imap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeFetchLiteralBoundary(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErr     bool
		errContains string
		wantTokens  int
	}{
		{
			name:       "empty literal {0}",
			input:      "(BODY {0}\r\n)",
			wantTokens: 2,
		},
		{
			name:       "literal with exact size",
			input:      "(BODY {5}\r\nHello)",
			wantTokens: 2,
		},
		{
			name:       "literal size exceeds buffer takes available data",
			input:      "(BODY {10}\r\nHello     )",
			wantTokens: 2,
		},
		{
			name:        "literal at end with size but no data",
			input:       "(BODY {5}\r\n",
			wantErr:     true,
			errContains: "literal size 5 but tokenStart",
		},
		{
			name:       "multiple tokens with literal in the middle",
			input:      "(UID 7 BODY {5}\r\nHello FLAGS (\\Seen))",
			wantTokens: 6,
		},
		{
			name:       "literal ending exactly at declared size",
			input:      "(BODY {3}\r\nabc)",
			wantTokens: 2,
		},
		{
			name:        "malformed size marker",
			input:       "(BODY {5x}\r\nHello)",
			wantErr:     true,
			errContains: "malformed literal size marker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := tokenizeFetch(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					require.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			require.Len(t, tokens, tt.wantTokens)
		})
	}
}

func TestTokenizeFetchLiteralContent(t *testing.T) {
	tokens, err := tokenizeFetch("(BODY {5}\r\nHello)")
	require.NoError(t, err)
	require.Equal(t, TLiteral, tokens[0].Type)
	require.Equal(t, "BODY", tokens[0].Str)
	require.Equal(t, TAtom, tokens[1].Type)
	require.Equal(t, "Hello", tokens[1].Str)

	// {0} yields an empty atom, not a missing token.
	tokens, err = tokenizeFetch("(BODY {0}\r\n)")
	require.NoError(t, err)
	require.Equal(t, TAtom, tokens[1].Type)
	require.Equal(t, "", tokens[1].Str)
}

func TestTokenizeFetchClassifiesBarewords(t *testing.T) {
	tokens, err := tokenizeFetch("(UID 42 NIL \\Seen BODY[])")
	require.NoError(t, err)
	require.Len(t, tokens, 5)

	require.Equal(t, TLiteral, tokens[0].Type)
	require.Equal(t, "UID", tokens[0].Str)
	require.Equal(t, TNumber, tokens[1].Type)
	require.Equal(t, 42, tokens[1].Num)
	require.Equal(t, TNil, tokens[2].Type)
	require.Equal(t, TLiteral, tokens[3].Type)
	require.Equal(t, `\Seen`, tokens[3].Str)
	require.Equal(t, TLiteral, tokens[4].Type)
	require.Equal(t, "BODY[]", tokens[4].Str)
}

func TestTokenizeFetchQuoted(t *testing.T) {
	tokens, err := tokenizeFetch(`("17-Oct-2019 05:43:29 -0700" "escaped \" quote")`)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, TQuoted, tokens[0].Type)
	require.Equal(t, "17-Oct-2019 05:43:29 -0700", tokens[0].Str)
	require.Equal(t, `escaped " quote`, tokens[1].Str)
}

func TestTokenizeFetchNestedContainers(t *testing.T) {
	tokens, err := tokenizeFetch(`(ENVELOPE ("date" "subject" (("Name" NIL "box" "host"))))`)
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	env := tokens[1]
	require.Equal(t, TContainer, env.Type)
	require.Len(t, env.Tokens, 3)

	addrs := env.Tokens[2]
	require.Equal(t, TContainer, addrs.Type)
	addr := addrs.Tokens[0]
	require.Equal(t, TContainer, addr.Type)
	require.Len(t, addr.Tokens, 4)
	require.Equal(t, "Name", addr.Tokens[0].Str)
	require.Equal(t, TNil, addr.Tokens[1].Type)
	require.Equal(t, "box", addr.Tokens[2].Str)
	require.Equal(t, "host", addr.Tokens[3].Str)
}

func TestTokenizeFetchParenErrors(t *testing.T) {
	_, err := tokenizeFetch("(BODY")
	require.Error(t, err)
	require.Contains(t, err.Error(), "mismatched parentheses")

	_, err = tokenizeFetch("BODY)")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmatched ')'")
}

func TestParseFetchRecords(t *testing.T) {
	untagged := []string{
		`1 FETCH (UID 5 FLAGS (\Seen))`,
		"OK still here", // status chatter between records is skipped
		`2 FETCH (UID 9 FLAGS ())`,
	}

	records, err := parseFetchRecords(untagged)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "UID", records[0][0].Str)
	require.Equal(t, 5, records[0][1].Num)
	require.Equal(t, 9, records[1][1].Num)
}

func TestFetchRecordContent(t *testing.T) {
	content, ok := fetchRecordContent(`12 FETCH (UID 5)`)
	require.True(t, ok)
	require.Equal(t, "(UID 5)", content)

	_, ok = fetchRecordContent("SEARCH 1 2 3")
	require.False(t, ok)

	_, ok = fetchRecordContent("12 EXPUNGE")
	require.False(t, ok)
}

func TestGetTokenName(t *testing.T) {
	require.Equal(t, "TAtom", GetTokenName(TAtom))
	require.Equal(t, "TContainer", GetTokenName(TContainer))
	require.Equal(t, "", GetTokenName(TType(99)))
}
