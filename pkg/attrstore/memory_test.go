package attrstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSetDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, ScopeMember, "alice", "email")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, ScopeMember, "alice", "email", []byte("alice@example.com")))
	v, err := s.Get(ctx, ScopeMember, "alice", "email")
	require.NoError(t, err)
	require.Equal(t, []byte("alice@example.com"), v)

	require.NoError(t, s.Del(ctx, ScopeMember, "alice", "email"))
	_, err = s.Get(ctx, ScopeMember, "alice", "email")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelUnknownIsNoop(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Del(context.Background(), ScopeMember, "nobody", "k"))
}

func TestMemoryStoreIdentitiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, ScopeMember, "alice", "k", []byte("a")))
	require.NoError(t, s.Set(ctx, ScopeMember, "bob", "k", []byte("b")))

	va, err := s.Get(ctx, ScopeMember, "alice", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("a"), va)

	vb, err := s.Get(ctx, ScopeMember, "bob", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("b"), vb)
}

func TestMemoryStoreScopeIsPartOfIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, ScopeMember, "1", "k", []byte("member")))
	require.NoError(t, s.Set(ctx, ScopeEnroller, "1", "k", []byte("enroller")))

	vm, err := s.Get(ctx, ScopeMember, "1", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("member"), vm)

	ve, err := s.Get(ctx, ScopeEnroller, "1", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("enroller"), ve)
}

func TestMemoryStoreReturnedSliceIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, ScopeMember, "alice", "k", []byte("secret")))

	v, err := s.Get(ctx, ScopeMember, "alice", "k")
	require.NoError(t, err)
	v[0] = 'X'

	v2, err := s.Get(ctx, ScopeMember, "alice", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), v2)
}
