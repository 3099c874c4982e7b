package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/wire"
)

func noopReplacement(_ context.Context, _ netbus.Address) (netbus.Address, error) {
	return "", nil
}

func TestRegistryAddAssignsDistinctKeys(t *testing.T) {
	r := NewRegistry()
	k1 := r.Add(Active, "addr-1", nil)
	k2 := r.Add(Active, "addr-2", nil)
	require.NotEqual(t, k1, k2)

	s1, ok := r.Get(k1)
	require.True(t, ok)
	require.Equal(t, netbus.Address("addr-1"), s1.Address())
	require.Equal(t, Up, s1.Status())
}

func TestRegistryDependencyEdges(t *testing.T) {
	r := NewRegistry()
	a := r.Add(Active, "a", nil)
	b := r.Add(Active, "b", nil)
	require.NoError(t, r.AddDependency(a, b))

	require.Equal(t, []wire.SessionKey{b}, r.Dependencies(a))
	require.Equal(t, []wire.SessionKey{a}, r.Dependents(b))
}

func TestRegistryAddDependencyUnknownKey(t *testing.T) {
	r := NewRegistry()
	a := r.Add(Active, "a", nil)
	require.Error(t, r.AddDependency(a, wire.SessionKey{Rnd: 99, Idx: 99}))
}

func TestRegistryPushPingBoundedByMaxFailures(t *testing.T) {
	r := NewRegistry()
	k := r.Add(Active, "a", nil)

	for i := 0; i < MaxFailures; i++ {
		require.True(t, r.pushPing(k, uint64(i+1)))
	}
	require.False(t, r.pushPing(k, 999))

	s, _ := r.Get(k)
	require.Equal(t, MaxFailures, s.PingCount())
}

func TestRegistryAcceptPongClearsAllPings(t *testing.T) {
	r := NewRegistry()
	k := r.Add(Active, "a", nil)
	r.pushPing(k, 1)
	r.pushPing(k, 2)

	require.True(t, r.acceptPong(k, 2))
	s, _ := r.Get(k)
	require.Equal(t, 0, s.PingCount())

	require.False(t, r.acceptPong(k, 2))
}

func TestRegistryAnyDependentActiveSkipsTransitivePing(t *testing.T) {
	r := NewRegistry()
	a := r.Add(Active, "a", nil)
	b := r.Add(Active, "b", nil)
	require.NoError(t, r.AddDependency(a, b))

	require.True(t, r.anyDependentActive(b))
	require.False(t, r.anyDependentActive(a))
}

func TestRegistryAnyDependencyDown(t *testing.T) {
	r := NewRegistry()
	a := r.Add(Active, "a", noopReplacement)
	b := r.Add(Active, "b", noopReplacement)
	require.NoError(t, r.AddDependency(a, b))

	require.False(t, r.anyDependencyDown(a))
	r.markDown(b)
	require.True(t, r.anyDependencyDown(a))
}

func TestRegistryDeepestUpReplaceableWalksChain(t *testing.T) {
	r := NewRegistry()
	a := r.Add(Active, "a", noopReplacement)
	b := r.Add(Active, "b", noopReplacement)
	c := r.Add(Active, "c", noopReplacement)
	require.NoError(t, r.AddDependency(a, b))
	require.NoError(t, r.AddDependency(b, c))

	target, ok := r.deepestUpReplaceable(a)
	require.True(t, ok)
	require.Equal(t, c, target)
}

func TestRegistryDeepestUpReplaceableFallsBackToSelf(t *testing.T) {
	r := NewRegistry()
	a := r.Add(Active, "a", noopReplacement)

	target, ok := r.deepestUpReplaceable(a)
	require.True(t, ok)
	require.Equal(t, a, target)
}

func TestRegistryDeepestUpReplaceableNoneQualifies(t *testing.T) {
	r := NewRegistry()
	a := r.Add(Active, "a", nil)

	_, ok := r.deepestUpReplaceable(a)
	require.False(t, ok)
}

func TestRegistryMarkUpWithAddressClearsPings(t *testing.T) {
	r := NewRegistry()
	k := r.Add(Active, "old", noopReplacement)
	r.pushPing(k, 1)

	r.markUpWithAddress(k, "new")
	s, _ := r.Get(k)
	require.Equal(t, Up, s.Status())
	require.Equal(t, netbus.Address("new"), s.Address())
	require.Equal(t, 0, s.PingCount())
}

func TestRegistryRemoveFreesSlot(t *testing.T) {
	r := NewRegistry()
	k := r.Add(Active, "a", nil)
	r.Remove(k)
	_, ok := r.Get(k)
	require.False(t, ok)
}
