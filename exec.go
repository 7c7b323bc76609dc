package imap

import (
	"context"
	"fmt"
)

// execTagged submits a command and waits for its final tagged response,
// turning NO/BAD outcomes into a *CommandFailedError. The typed helpers
// (folders, search, fetch, store) are all built on it.
func (c *Client) execTagged(ctx context.Context, typ CommandType, args ...string) (*TaggedResponse, error) {
	p, err := c.Submit(typ, args...)
	if err != nil {
		return nil, err
	}

	resp, err := p.Await(ctx)
	if err != nil {
		return nil, err
	}

	switch r := resp.(type) {
	case *TaggedResponse:
		if r.Code != ResponseOK {
			return nil, &CommandFailedError{Command: typ.String(), Code: r.Code, Message: r.Message}
		}
		return r, nil
	case *ContinuationResponse:
		return nil, fmt.Errorf("imap %s: unexpected continuation %q", typ, r.Message)
	}
	return nil, fmt.Errorf("imap %s: unexpected response %T", typ, resp)
}

// execRaw is execTagged for commands without a dedicated CommandType.
func (c *Client) execRaw(ctx context.Context, args ...string) (*TaggedResponse, error) {
	return c.execTagged(ctx, CommandRaw, args...)
}
