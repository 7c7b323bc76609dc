package imap

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	humanize "github.com/dustin/go-humanize"
	"github.com/jhillyerd/enmime/v2"
	"golang.org/x/net/html/charset"
)

// EmailAddresses represents a map of email addresses to display names
type EmailAddresses map[string]string

// Email represents an IMAP email message
type Email struct {
	Flags       []string
	Received    time.Time
	Sent        time.Time
	Size        uint64
	Subject     string
	UID         int
	MessageID   string
	From        EmailAddresses
	To          EmailAddresses
	ReplyTo     EmailAddresses
	CC          EmailAddresses
	BCC         EmailAddresses
	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment represents an email attachment
type Attachment struct {
	Name     string
	MimeType string
	Content  []byte
}

// TimeFormat is the Go time version of the IMAP times
const TimeFormat = "_2-Jan-2006 15:04:05 -0700"

func (e EmailAddresses) String() string {
	emails := strings.Builder{}
	i := 0
	for e, n := range e {
		if i != 0 {
			emails.WriteString(", ")
		}
		if len(n) != 0 {
			if strings.ContainsRune(n, ',') {
				emails.WriteString(fmt.Sprintf(`"%s" <%s>`, AddSlashes.Replace(n), e))
			} else {
				emails.WriteString(fmt.Sprintf(`%s <%s>`, n, e))
			}
		} else {
			emails.WriteString(e)
		}
		i++
	}
	return emails.String()
}

func (e Email) String() string {
	email := strings.Builder{}

	email.WriteString(fmt.Sprintf("Subject: %s\n", e.Subject))

	if len(e.To) != 0 {
		email.WriteString(fmt.Sprintf("To: %s\n", e.To))
	}
	if len(e.From) != 0 {
		email.WriteString(fmt.Sprintf("From: %s\n", e.From))
	}
	if len(e.CC) != 0 {
		email.WriteString(fmt.Sprintf("CC: %s\n", e.CC))
	}
	if len(e.BCC) != 0 {
		email.WriteString(fmt.Sprintf("BCC: %s\n", e.BCC))
	}
	if len(e.ReplyTo) != 0 {
		email.WriteString(fmt.Sprintf("ReplyTo: %s\n", e.ReplyTo))
	}
	if len(e.Text) != 0 {
		if len(e.Text) > 20 {
			email.WriteString(fmt.Sprintf("Text: %s...", e.Text[:20]))
		} else {
			email.WriteString(fmt.Sprintf("Text: %s", e.Text))
		}
		email.WriteString(fmt.Sprintf(" (%s)\n", humanize.Bytes(uint64(len(e.Text)))))
	}
	if len(e.HTML) != 0 {
		if len(e.HTML) > 20 {
			email.WriteString(fmt.Sprintf("HTML: %s...", e.HTML[:20]))
		} else {
			email.WriteString(fmt.Sprintf("HTML: %s", e.HTML))
		}
		email.WriteString(fmt.Sprintf(" (%s)\n", humanize.Bytes(uint64(len(e.HTML)))))
	}

	if len(e.Attachments) != 0 {
		email.WriteString(fmt.Sprintf("%d Attachment(s): %s\n", len(e.Attachments), e.Attachments))
	}

	return email.String()
}

func (a Attachment) String() string {
	return fmt.Sprintf("%s (%s %s)", a.Name, a.MimeType, humanize.Bytes(uint64(len(a.Content))))
}

// Envelope field offsets within a FETCH ENVELOPE container.
const (
	eDate uint8 = iota
	eSubject
	eFrom
	eSender
	eReplyTo
	eTo
	eCC
	eBCC
	eInReplyTo
	eMessageID
)

// Address field offsets within an ENVELOPE address container.
const (
	eeName uint8 = iota
	eeSR   // source route; unused
	eeMailbox
	eeHost
)

// parseUIDSearchResponse extracts UIDs from the untagged data of a UID
// SEARCH completion.
func parseUIDSearchResponse(untagged []string) ([]int, error) {
	for _, line := range untagged {
		fields := strings.Fields(line)
		if len(fields) >= 1 && fields[0] == "SEARCH" {
			uids := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				u, err := strconv.Atoi(f)
				if err != nil {
					return nil, err
				}
				uids = append(uids, u)
			}
			return uids, nil
		}
	}
	return nil, fmt.Errorf("no SEARCH data in response")
}

// GetUIDs returns the UIDs in the current folder that match the search.
func (c *Client) GetUIDs(ctx context.Context, search string) ([]int, error) {
	r, err := c.execRaw(ctx, "UID", "SEARCH", search)
	if err != nil {
		return nil, err
	}
	return parseUIDSearchResponse(r.Untagged)
}

func uidSetString(uids []int) string {
	if len(uids) == 0 {
		return "1:*"
	}
	s := strings.Builder{}
	n := 0
	for _, u := range uids {
		if u == 0 {
			continue
		}
		if n != 0 {
			s.WriteByte(',')
		}
		s.WriteString(strconv.Itoa(u))
		n++
	}
	return s.String()
}

// flattenRecord unwraps single-child container wrappers some servers put
// around FETCH content.
func flattenRecord(tks []*Token) []*Token {
	for len(tks) == 1 && tks[0].Type == TContainer {
		tks = tks[0].Tokens
	}
	return tks
}

// GetOverviews returns emails without bodies for the given UIDs in the
// current folder. With no UIDs, everything in the folder is selected.
func (c *Client) GetOverviews(ctx context.Context, uids ...int) (map[int]*Email, error) {
	r, err := c.execRaw(ctx, "UID", "FETCH", uidSetString(uids), "ALL")
	if err != nil {
		return nil, err
	}

	records, err := parseFetchRecords(r.Untagged)
	if err != nil {
		return nil, err
	}

	charsetReader := func(label string, input io.Reader) (io.Reader, error) {
		label = strings.ReplaceAll(label, "windows-", "cp")
		encoding, _ := charset.Lookup(label)
		if encoding == nil {
			return input, nil
		}
		return encoding.NewDecoder().Reader(input), nil
	}
	dec := mime.WordDecoder{CharsetReader: charsetReader}

	emails := make(map[int]*Email, len(records))
	for _, tks := range records {
		tks = flattenRecord(tks)
		e := &Email{}
		skip := 0
		for i, t := range tks {
			if skip > 0 {
				skip--
				continue
			}
			if err := checkTokenType(t, []TType{TLiteral}, tks, "in root"); err != nil {
				return nil, err
			}
			switch t.Str {
			case "FLAGS":
				if err := checkTokenType(tks[i+1], []TType{TContainer}, tks, "after FLAGS"); err != nil {
					return nil, err
				}
				e.Flags = make([]string, len(tks[i+1].Tokens))
				for j, ft := range tks[i+1].Tokens {
					if err := checkTokenType(ft, []TType{TLiteral}, tks, "for FLAGS[%d]", j); err != nil {
						return nil, err
					}
					e.Flags[j] = ft.Str
				}
				skip++
			case "INTERNALDATE":
				if err := checkTokenType(tks[i+1], []TType{TQuoted}, tks, "after INTERNALDATE"); err != nil {
					return nil, err
				}
				received, err := time.Parse(TimeFormat, tks[i+1].Str)
				if err != nil {
					return nil, err
				}
				e.Received = received.UTC()
				skip++
			case "RFC822.SIZE":
				if err := checkTokenType(tks[i+1], []TType{TNumber}, tks, "after RFC822.SIZE"); err != nil {
					return nil, err
				}
				e.Size = uint64(tks[i+1].Num)
				skip++
			case "ENVELOPE":
				if err := c.parseEnvelope(e, tks, i, &dec); err != nil {
					return nil, err
				}
				skip++
			case "UID":
				if err := checkTokenType(tks[i+1], []TType{TNumber}, tks, "after UID"); err != nil {
					return nil, err
				}
				e.UID = tks[i+1].Num
				skip++
			}
		}

		emails[e.UID] = e
	}

	return emails, nil
}

func (c *Client) parseEnvelope(e *Email, tks []*Token, i int, dec *mime.WordDecoder) error {
	if err := checkTokenType(tks[i+1], []TType{TContainer}, tks, "after ENVELOPE"); err != nil {
		return err
	}
	env := tks[i+1].Tokens
	if err := checkTokenType(env[eDate], []TType{TQuoted, TNil}, tks, "for ENVELOPE[%d]", eDate); err != nil {
		return err
	}
	if err := checkTokenType(env[eSubject], []TType{TQuoted, TAtom, TNil}, tks, "for ENVELOPE[%d]", eSubject); err != nil {
		return err
	}

	sent, _ := time.Parse("Mon, _2 Jan 2006 15:04:05 -0700", env[eDate].Str)
	e.Sent = sent.UTC()

	subject, err := dec.DecodeHeader(env[eSubject].Str)
	if err != nil {
		return err
	}
	e.Subject = subject

	for _, a := range []struct {
		dest  *EmailAddresses
		pos   uint8
		debug string
	}{
		{&e.From, eFrom, "FROM"},
		{&e.ReplyTo, eReplyTo, "REPLYTO"},
		{&e.To, eTo, "TO"},
		{&e.CC, eCC, "CC"},
		{&e.BCC, eBCC, "BCC"},
	} {
		if env[eFrom].Type == TNil {
			continue
		}
		if err := checkTokenType(env[a.pos], []TType{TNil, TContainer}, tks, "for ENVELOPE[%d]", a.pos); err != nil {
			return err
		}
		*a.dest = make(map[string]string, len(env[a.pos].Tokens))
		for j, t := range env[a.pos].Tokens {
			if err := checkTokenType(t.Tokens[eeName], []TType{TQuoted, TAtom, TNil}, tks, "for %s[%d][%d]", a.debug, j, eeName); err != nil {
				return err
			}
			if err := checkTokenType(t.Tokens[eeMailbox], []TType{TQuoted, TAtom, TNil}, tks, "for %s[%d][%d]", a.debug, j, eeMailbox); err != nil {
				return err
			}
			if err := checkTokenType(t.Tokens[eeHost], []TType{TQuoted, TAtom, TNil}, tks, "for %s[%d][%d]", a.debug, j, eeHost); err != nil {
				return err
			}

			name, err := dec.DecodeHeader(t.Tokens[eeName].Str)
			if err != nil {
				return err
			}
			mailbox, err := dec.DecodeHeader(t.Tokens[eeMailbox].Str)
			if err != nil {
				return err
			}
			host, err := dec.DecodeHeader(t.Tokens[eeHost].Str)
			if err != nil {
				return err
			}

			(*a.dest)[strings.ToLower(mailbox+"@"+host)] = name
		}
	}

	e.MessageID = env[eMessageID].Str
	return nil
}

// GetEmails returns emails with their bodies for the given UIDs in the
// current folder. With no UIDs, everything in the folder is selected.
func (c *Client) GetEmails(ctx context.Context, uids ...int) (map[int]*Email, error) {
	emails, err := c.GetOverviews(ctx, uids...)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return emails, nil
	}

	fetchSet := uidSetString(uids)
	if len(uids) != 0 {
		present := make([]int, 0, len(emails))
		for u := range emails {
			present = append(present, u)
		}
		fetchSet = uidSetString(present)
	}

	r, err := c.execRaw(ctx, "UID", "FETCH", fetchSet, "BODY.PEEK[]")
	if err != nil {
		return nil, err
	}

	records, err := parseFetchRecords(r.Untagged)
	if err != nil {
		return nil, err
	}

	for _, tks := range records {
		tks = flattenRecord(tks)
		e := &Email{}
		skip := 0
		success := true
		for i, t := range tks {
			if skip > 0 {
				skip--
				continue
			}
			if err := checkTokenType(t, []TType{TLiteral}, tks, "in root"); err != nil {
				return nil, err
			}
			switch t.Str {
			case "BODY[]":
				if err := checkTokenType(tks[i+1], []TType{TAtom}, tks, "after BODY[]"); err != nil {
					return nil, err
				}
				msg := tks[i+1].Str
				env, err := enmime.ReadEnvelope(strings.NewReader(msg))
				if err != nil {
					warnLog(c.sessionID, c.Folder(), "email body could not be parsed, skipping",
						"error", err, "size", humanize.Bytes(uint64(len(msg))))
					if Verbose {
						spew.Dump(msg)
					}
					success = false
				} else {
					fillFromEnvelope(e, env)
				}
				skip++
			case "UID":
				if err := checkTokenType(tks[i+1], []TType{TNumber}, tks, "after UID"); err != nil {
					return nil, err
				}
				e.UID = tks[i+1].Num
				skip++
			}
		}

		if !success {
			delete(emails, e.UID)
			continue
		}
		if emails[e.UID] == nil {
			emails[e.UID] = &Email{UID: e.UID}
		}
		dst := emails[e.UID]
		dst.Subject = e.Subject
		dst.From = e.From
		dst.ReplyTo = e.ReplyTo
		dst.To = e.To
		dst.CC = e.CC
		dst.BCC = e.BCC
		dst.Text = e.Text
		dst.HTML = e.HTML
		dst.Attachments = e.Attachments
	}

	return emails, nil
}

func fillFromEnvelope(e *Email, env *enmime.Envelope) {
	e.Subject = env.GetHeader("Subject")
	e.Text = env.Text
	e.HTML = env.HTML

	for _, a := range env.Attachments {
		e.Attachments = append(e.Attachments, Attachment{
			Name:     a.FileName,
			MimeType: a.ContentType,
			Content:  a.Content,
		})
	}
	for _, a := range env.Inlines {
		e.Attachments = append(e.Attachments, Attachment{
			Name:     a.FileName,
			MimeType: a.ContentType,
			Content:  a.Content,
		})
	}

	for _, a := range []struct {
		dest   *EmailAddresses
		header string
	}{
		{&e.From, "From"},
		{&e.ReplyTo, "Reply-To"},
		{&e.To, "To"},
		{&e.CC, "cc"},
		{&e.BCC, "bcc"},
	} {
		alist, _ := env.AddressList(a.header)
		*a.dest = make(map[string]string, len(alist))
		for _, addr := range alist {
			(*a.dest)[strings.ToLower(addr.Address)] = addr.Name
		}
	}
}

// checkTokenType validates a token against a list of acceptable types;
// if the type of the token isn't in the list, an error is returned.
func checkTokenType(token *Token, acceptableTypes []TType, tks []*Token, loc string, v ...interface{}) error {
	for _, a := range acceptableTypes {
		if token.Type == a {
			return nil
		}
	}

	types := ""
	for i, a := range acceptableTypes {
		if i != 0 {
			types += "|"
		}
		types += GetTokenName(a)
	}
	return fmt.Errorf("imap: expected %s token %s, got %+v in %v", types, fmt.Sprintf(loc, v...), token, tks)
}
