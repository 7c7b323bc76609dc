package imap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Token is a fetch response token (e.g. a number, or a quoted section, or a container, etc.)
type Token struct {
	Type   TType
	Str    string
	Num    int
	Tokens []*Token
}

// TType is the enum type for token values
type TType uint8

const (
	// TUnset is an unset token; used by the parser
	TUnset TType = iota
	// TAtom is a string that's prefixed with `{n}`
	// where n is the number of bytes in the string
	TAtom
	// TNumber is a numeric literal
	TNumber
	// TLiteral is a literal (think string, ish, used mainly for field names)
	TLiteral
	// TQuoted is a quoted piece of text
	TQuoted
	// TNil is a nil value, nothing
	TNil
	// TContainer is a container of tokens
	TContainer
)

// GetTokenName returns the name of the given token type token
func GetTokenName(tokenType TType) string {
	switch tokenType {
	case TUnset:
		return "TUnset"
	case TAtom:
		return "TAtom"
	case TNumber:
		return "TNumber"
	case TLiteral:
		return "TLiteral"
	case TQuoted:
		return "TQuoted"
	case TNil:
		return "TNil"
	case TContainer:
		return "TContainer"
	}
	return ""
}

func (t Token) String() string {
	tokenType := GetTokenName(t.Type)
	switch t.Type {
	case TUnset, TNil:
		return tokenType
	case TAtom, TQuoted:
		return fmt.Sprintf("(%s, len %d, chars %d %#v)", tokenType, len(t.Str), len([]rune(t.Str)), t.Str)
	case TNumber:
		return fmt.Sprintf("(%s %d)", tokenType, t.Num)
	case TLiteral:
		return fmt.Sprintf("(%s %s)", tokenType, t.Str)
	case TContainer:
		return fmt.Sprintf("(%s children: %s)", tokenType, t.Tokens)
	}
	return ""
}

// IsLiteral returns if the given byte is an acceptable literal character
func IsLiteral(b rune) bool {
	switch {
	case unicode.IsDigit(b),
		unicode.IsLetter(b),
		b == '\\',
		b == '.',
		b == '[',
		b == ']':
		return true
	}
	return false
}

// tokenReader walks one FETCH record and produces its token tree.
type tokenReader struct {
	src string
	pos int
}

// tokenizeFetch parses the parenthesized content of a FETCH data line into
// tokens. A single top-level container is flattened to its children.
func tokenizeFetch(s string) ([]*Token, error) {
	r := &tokenReader{src: s}
	tokens, err := r.readTokens(true)
	if err != nil {
		return nil, err
	}

	if len(tokens) == 1 && tokens[0].Type == TContainer {
		tokens = tokens[0].Tokens
	}
	return tokens, nil
}

// readTokens reads tokens until ')' (inside a container) or end of input
// (top level).
func (r *tokenReader) readTokens(topLevel bool) ([]*Token, error) {
	tokens := make([]*Token, 0, 4)

	for r.pos < len(r.src) {
		b := r.src[r.pos]
		switch {
		case b == ')':
			if topLevel {
				return nil, fmt.Errorf("unmatched ')' at char %d in %s", r.pos, r.src)
			}
			return tokens, nil

		case b == '(':
			r.pos++
			children, err := r.readTokens(false)
			if err != nil {
				return nil, err
			}
			if r.pos >= len(r.src) || r.src[r.pos] != ')' {
				return nil, fmt.Errorf("mismatched parentheses at end of parsing %s", r.src)
			}
			r.pos++
			tokens = append(tokens, &Token{Type: TContainer, Tokens: children})

		case b == '"':
			tok, err := r.readQuoted()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case b == '{':
			tok, err := r.readLiteralAtom()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case IsLiteral(rune(b)):
			tokens = append(tokens, r.readBareword())

		default:
			// whitespace and anything else between tokens
			r.pos++
		}
	}

	if !topLevel {
		return nil, fmt.Errorf("mismatched parentheses at end of parsing %s", r.src)
	}
	return tokens, nil
}

// readQuoted consumes a double-quoted string, honoring backslash escapes.
func (r *tokenReader) readQuoted() (*Token, error) {
	r.pos++ // opening quote
	start := r.pos
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case '\\':
			r.pos += 2
		case '"':
			raw := r.src[start:r.pos]
			r.pos++
			return &Token{Type: TQuoted, Str: RemoveSlashes.Replace(raw)}, nil
		default:
			r.pos++
		}
	}
	// Unterminated quote: take what we have, like a truncated literal.
	return &Token{Type: TQuoted, Str: RemoveSlashes.Replace(r.src[start:])}, nil
}

// readLiteralAtom consumes a {n} length marker plus the n bytes that
// follow. A declared size past the end of the buffer takes the available
// data; a size with no data at all is an error.
func (r *tokenReader) readLiteralAtom() (*Token, error) {
	r.pos++ // '{'
	sizeStart := r.pos
	for r.pos < len(r.src) && unicode.IsDigit(rune(r.src[r.pos])) {
		r.pos++
	}
	if r.pos >= len(r.src) || r.src[r.pos] != '}' {
		return nil, fmt.Errorf("malformed literal size marker in %s", r.src)
	}
	size, err := strconv.Atoi(r.src[sizeStart:r.pos])
	if err != nil {
		return nil, fmt.Errorf("literal size Atoi failed for '%s': %w", r.src[sizeStart:r.pos], err)
	}
	r.pos++ // '}'

	// skip CRLF
	if r.pos < len(r.src) && r.src[r.pos] == '\r' {
		r.pos++
	}
	if r.pos < len(r.src) && r.src[r.pos] == '\n' {
		r.pos++
	}

	switch {
	case r.pos >= len(r.src):
		if size == 0 {
			return &Token{Type: TAtom, Str: ""}, nil
		}
		return nil, fmt.Errorf("literal size %d but tokenStart %d is at/past end of buffer %d", size, r.pos, len(r.src))
	case r.pos+size > len(r.src):
		str := r.src[r.pos:]
		r.pos = len(r.src)
		return &Token{Type: TAtom, Str: str}, nil
	default:
		str := r.src[r.pos : r.pos+size]
		r.pos += size
		return &Token{Type: TAtom, Str: str}, nil
	}
}

// readBareword consumes a run of literal characters and classifies it as a
// number, NIL, or a field-name literal.
func (r *tokenReader) readBareword() *Token {
	start := r.pos
	for r.pos < len(r.src) && IsLiteral(rune(r.src[r.pos])) {
		r.pos++
	}
	s := r.src[start:r.pos]

	if num, err := strconv.Atoi(s); err == nil {
		return &Token{Type: TNumber, Num: num}
	}
	if s == "NIL" {
		return &Token{Type: TNil}
	}
	return &Token{Type: TLiteral, Str: s}
}

// parseFetchRecords extracts the token trees from the untagged data lines
// of a FETCH completion. Lines that are not FETCH data are skipped.
func parseFetchRecords(untagged []string) ([][]*Token, error) {
	records := make([][]*Token, 0, len(untagged))

	for _, line := range untagged {
		content, ok := fetchRecordContent(line)
		if !ok {
			continue
		}
		tokens, err := tokenizeFetch(content)
		if err != nil {
			return nil, fmt.Errorf("token parsing failed for line [%s]: %w", line, err)
		}
		records = append(records, tokens)
	}
	return records, nil
}

// fetchRecordContent strips the "N FETCH " prefix from an untagged data
// line, reporting false for lines that are not FETCH data.
func fetchRecordContent(line string) (string, bool) {
	word, rest := splitWord(line)
	if _, err := strconv.Atoi(word); err != nil {
		return "", false
	}
	if !strings.HasPrefix(rest, "FETCH ") {
		return "", false
	}
	return rest[len("FETCH "):], true
}
