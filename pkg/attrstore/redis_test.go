package attrstore

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// These tests exercise RedisStore against a live Redis instance and are
// skipped unless ATTRSTORE_REDIS_TEST_URL is set, matching how the rest
// of this codebase keeps broker-backed integration tests out of the
// default unit test run.
func newTestRedisStore(t *testing.T) (*RedisStore, func()) {
	t.Helper()
	url := os.Getenv("ATTRSTORE_REDIS_TEST_URL")
	if url == "" {
		t.Skip("ATTRSTORE_REDIS_TEST_URL not set, skipping Redis integration test")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)

	store := NewRedisStore(client, nil)
	return store, func() { client.Close() }
}

func TestRedisStoreGetSetDel(t *testing.T) {
	store, cleanup := newTestRedisStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Get(ctx, ScopeMember, "redis-test-alice", "email")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, ScopeMember, "redis-test-alice", "email", []byte("alice@example.com")))
	v, err := store.Get(ctx, ScopeMember, "redis-test-alice", "email")
	require.NoError(t, err)
	require.Equal(t, []byte("alice@example.com"), v)

	require.NoError(t, store.Del(ctx, ScopeMember, "redis-test-alice", "email"))
	_, err = store.Get(ctx, ScopeMember, "redis-test-alice", "email")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreHashKeyNamespacesByScope(t *testing.T) {
	store := &RedisStore{}
	require.Equal(t, "attrstore:member:alice", store.hashKey(ScopeMember, "alice"))
	require.Equal(t, "attrstore:enroller:alice", store.hashKey(ScopeEnroller, "alice"))
}
