package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, DefaultCloseTimeout, cfg.CloseTimeout)
	require.Equal(t, DefaultIdleTimeout, cfg.IdleTimeout)
	require.Equal(t, RetryCount, cfg.RetryCount)
	require.NotEmpty(t, cfg.SessionID)
}

func TestConfigWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		CloseTimeout: 5 * time.Second,
		IdleTimeout:  time.Minute,
		RetryCount:   2,
		SessionID:    "session-1",
	}.withDefaults()
	require.Equal(t, 5*time.Second, cfg.CloseTimeout)
	require.Equal(t, time.Minute, cfg.IdleTimeout)
	require.Equal(t, 2, cfg.RetryCount)
	require.Equal(t, "session-1", cfg.SessionID)
}

func TestConfigNegativeIdleTimeoutDisablesWatchdog(t *testing.T) {
	cfg := Config{IdleTimeout: -1}.withDefaults()
	require.Zero(t, cfg.IdleTimeout)
}

func TestConfigSessionIDsAreUnique(t *testing.T) {
	a := Config{}.withDefaults()
	b := Config{}.withDefaults()
	require.NotEqual(t, a.SessionID, b.SessionID)
}
