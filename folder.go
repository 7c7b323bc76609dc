package imap

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// MailboxStatus summarizes the outcome of selecting a mailbox.
type MailboxStatus struct {
	Name     string
	ReadOnly bool
	Exists   int
}

// ListFolders returns all folders visible under the default namespace.
func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	r, err := c.execTagged(ctx, CommandList, "", "*")
	if err != nil {
		return nil, err
	}

	folders := make([]string, 0, len(r.Untagged))
	for _, line := range r.Untagged {
		if !strings.HasPrefix(line, "LIST ") {
			continue
		}
		if name, ok := parseListName(line); ok {
			folders = append(folders, name)
		}
	}
	return folders, nil
}

// parseListName extracts the mailbox name from a LIST data line. The name
// is the final field and may be quoted with escaped inner quotes.
func parseListName(line string) (string, bool) {
	if len(line) == 0 {
		return "", false
	}

	i := len(line) - 1
	quoted := line[i] == '"'
	delim := byte(' ')
	if quoted {
		delim = '"'
		i--
	}
	end := i
	for i > 0 {
		if line[i] == delim {
			if !quoted || line[i-1] != '\\' {
				break
			}
		}
		i--
	}
	if i <= 0 {
		return "", false
	}
	return RemoveSlashes.Replace(line[i+1 : end+1]), true
}

var existsRE = regexp.MustCompile(`^(\d+) EXISTS`)

// SelectFolder opens a mailbox read-write.
func (c *Client) SelectFolder(ctx context.Context, folder string) (*MailboxStatus, error) {
	return c.openFolder(ctx, CommandSelect, folder, false)
}

// ExamineFolder opens a mailbox read-only.
func (c *Client) ExamineFolder(ctx context.Context, folder string) (*MailboxStatus, error) {
	return c.openFolder(ctx, CommandExamine, folder, true)
}

func (c *Client) openFolder(ctx context.Context, typ CommandType, folder string, readOnly bool) (*MailboxStatus, error) {
	r, err := c.execTagged(ctx, typ, folder)
	if err != nil {
		return nil, err
	}

	status := &MailboxStatus{Name: folder, ReadOnly: readOnly}
	for _, line := range r.Untagged {
		if m := existsRE.FindStringSubmatch(line); m != nil {
			status.Exists, _ = strconv.Atoi(m[1])
		}
	}

	c.setFolder(folder, readOnly)
	return status, nil
}
