package imap

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SetFlags applies flag changes to a message by UID in the currently
// selected mailbox. System flags are driven by the struct fields, custom
// keywords by the Keywords map.
func (c *Client) SetFlags(ctx context.Context, uid int, flags Flags) error {
	var addFlags, removeFlags []string

	v := reflect.ValueOf(flags)
	t := reflect.TypeOf(flags)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type != reflect.TypeOf(FlagUnset) {
			continue
		}
		switch FlagSet(v.Field(i).Int()) {
		case FlagAdd:
			addFlags = append(addFlags, `\`+field.Name)
		case FlagRemove:
			removeFlags = append(removeFlags, `\`+field.Name)
		}
	}

	for keyword, state := range flags.Keywords {
		if state {
			addFlags = append(addFlags, keyword)
		} else {
			removeFlags = append(removeFlags, keyword)
		}
	}

	args := []string{"UID", "STORE", strconv.Itoa(uid)}
	if len(addFlags) > 0 {
		args = append(args, fmt.Sprintf("+FLAGS (%s)", strings.Join(addFlags, " ")))
	}
	if len(removeFlags) > 0 {
		args = append(args, fmt.Sprintf("-FLAGS (%s)", strings.Join(removeFlags, " ")))
	}

	_, err := c.execRaw(ctx, args...)
	return err
}

// MarkSeen marks a message as seen.
func (c *Client) MarkSeen(ctx context.Context, uid int) error {
	return c.SetFlags(ctx, uid, Flags{Seen: FlagAdd})
}

// DeleteEmail marks a message as deleted; Expunge makes it permanent.
func (c *Client) DeleteEmail(ctx context.Context, uid int) error {
	return c.SetFlags(ctx, uid, Flags{Deleted: FlagAdd})
}

// MoveEmail moves a message by UID to another folder.
func (c *Client) MoveEmail(ctx context.Context, uid int, folder string) error {
	_, err := c.execRaw(ctx, "UID", "MOVE", strconv.Itoa(uid), `"`+AddSlashes.Replace(folder)+`"`)
	return err
}

// Expunge permanently removes messages marked as deleted in the current
// folder.
func (c *Client) Expunge(ctx context.Context) error {
	_, err := c.execRaw(ctx, "EXPUNGE")
	return err
}
