package imap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitEvent[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		var zero T
		return zero
	}
}

func TestMailboxEventDispatch(t *testing.T) {
	c, tr := newTestClient(t, Config{})

	exists := make(chan ExistsEvent, 1)
	expunge := make(chan ExpungeEvent, 1)
	fetch := make(chan FetchEvent, 1)
	c.SetEventHandler(&EventHandler{
		OnExists:  func(ev ExistsEvent) { exists <- ev },
		OnExpunge: func(ev ExpungeEvent) { expunge <- ev },
		OnFetch:   func(ev FetchEvent) { fetch <- ev },
	})

	tr.deliver("* 4 EXISTS")
	require.Equal(t, 4, waitEvent(t, exists).MessageIndex)

	tr.deliver("* 2 EXPUNGE")
	require.Equal(t, 2, waitEvent(t, expunge).MessageIndex)

	tr.deliver(`* 7 FETCH (UID 42 FLAGS (\Seen \Flagged))`)
	ev := waitEvent(t, fetch)
	require.Equal(t, 7, ev.MessageIndex)
	require.Equal(t, uint32(42), ev.UID)
	require.Equal(t, []string{"Seen", "Flagged"}, ev.Flags)
}

func TestEventsIgnoredWithoutHandler(t *testing.T) {
	_, tr := newTestClient(t, Config{})

	// No handler installed; events are dropped without blocking or panic.
	tr.deliver("* 4 EXISTS")
	tr.deliver(`* 7 FETCH (FLAGS (\Seen))`)
}

func TestEventHandlerRemoval(t *testing.T) {
	c, tr := newTestClient(t, Config{})

	fired := make(chan ExistsEvent, 2)
	c.SetEventHandler(&EventHandler{OnExists: func(ev ExistsEvent) { fired <- ev }})

	tr.deliver("* 1 EXISTS")
	waitEvent(t, fired)

	c.SetEventHandler(nil)
	tr.deliver("* 2 EXISTS")

	select {
	case ev := <-fired:
		t.Fatalf("handler fired after removal: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMailboxEventsStillReachPendingCommand(t *testing.T) {
	c, tr := newTestClient(t, Config{})

	exists := make(chan ExistsEvent, 1)
	c.SetEventHandler(&EventHandler{OnExists: func(ev ExistsEvent) { exists <- ev }})

	p, err := c.Submit(CommandNoop)
	require.NoError(t, err)
	tr.waitWrite(t)

	// A status line during a command is both an event and command data.
	tr.deliver("* 8 EXISTS")
	tr.deliver("t0 OK NOOP completed")

	require.Equal(t, 8, waitEvent(t, exists).MessageIndex)

	resp, err := p.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"8 EXISTS"}, resp.(*TaggedResponse).Untagged)
}

func TestLeadingIndex(t *testing.T) {
	idx, err := leadingIndex("14 EXISTS")
	require.NoError(t, err)
	require.Equal(t, 14, idx)

	_, err = leadingIndex("EXISTS")
	require.Error(t, err)
}

func TestFetchEventUID(t *testing.T) {
	require.Equal(t, uint32(99), fetchEventUID(`UID 99 FLAGS (\Seen)`))
	require.Equal(t, uint32(99), fetchEventUID(`FLAGS (\Seen) uid 99`))
	require.Zero(t, fetchEventUID(`FLAGS (\Seen)`))
}
