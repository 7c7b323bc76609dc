package imap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPromiseResolvesOnce(t *testing.T) {
	p := newPromise[int]()
	require.False(t, p.Resolved())
	require.False(t, p.Succeeded())

	require.True(t, p.complete(42))
	require.True(t, p.Resolved())
	require.True(t, p.Succeeded())

	// Later resolutions are rejected and change nothing.
	require.False(t, p.complete(7))
	require.False(t, p.fail(errors.New("too late")))

	val, err := p.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, val)
}

func TestPromiseFailure(t *testing.T) {
	p := newPromise[int]()
	cause := errors.New("broken pipe")

	require.True(t, p.fail(cause))
	require.True(t, p.Resolved())
	require.False(t, p.Succeeded())

	_, err := p.Await(context.Background())
	require.ErrorIs(t, err, cause)
}

func TestPromiseAwaitHonorsContext(t *testing.T) {
	p := newPromise[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The promise itself is still pending and can resolve afterwards.
	require.True(t, p.complete(1))
	val, err := p.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, val)
}

func TestPromiseResult(t *testing.T) {
	p := newPromise[string]()

	_, _, resolved := p.Result()
	require.False(t, resolved)

	p.complete("done")
	val, err, resolved := p.Result()
	require.True(t, resolved)
	require.NoError(t, err)
	require.Equal(t, "done", val)
}

func TestPromiseDoneUnblocksAllWaiters(t *testing.T) {
	p := newPromise[int]()

	const n = 8
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = p.Await(context.Background())
		}(i)
	}

	p.complete(9)
	wg.Wait()

	for _, v := range results {
		require.Equal(t, 9, v)
	}
}

func TestPromiseConcurrentResolvers(t *testing.T) {
	p := newPromise[int]()

	const n = 16
	won := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			if i%2 == 0 {
				won <- p.complete(i)
			} else {
				won <- p.fail(errors.New("racer"))
			}
		}(i)
	}

	winners := 0
	for i := 0; i < n; i++ {
		if <-won {
			winners++
		}
	}
	require.Equal(t, 1, winners, "exactly one resolver may win")
}
