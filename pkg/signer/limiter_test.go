package signer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustmesh/node/pkg/netbus"
)

func TestCallerRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewCallerRateLimiter(1, 2, time.Minute)
	defer rl.Stop()

	caller := netbus.Address("caller-1")
	require.True(t, rl.Allow(caller))
	require.True(t, rl.Allow(caller))
	require.False(t, rl.Allow(caller))
}

func TestCallerRateLimiterIsolatesCallers(t *testing.T) {
	rl := NewCallerRateLimiter(1, 1, time.Minute)
	defer rl.Stop()

	require.True(t, rl.Allow(netbus.Address("caller-a")))
	require.True(t, rl.Allow(netbus.Address("caller-b")))
	require.False(t, rl.Allow(netbus.Address("caller-a")))
}
