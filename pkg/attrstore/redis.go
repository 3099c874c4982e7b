package attrstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the attribute store with a Redis hash per (scope,
// id) identity, one field per key. enc, when non-nil, seals every value
// before it is written and opens it on read.
type RedisStore struct {
	client *redis.Client
	enc    *Encryptor
}

// NewRedisStore wraps client. enc may be nil to store plaintext.
func NewRedisStore(client *redis.Client, enc *Encryptor) *RedisStore {
	return &RedisStore{client: client, enc: enc}
}

func (s *RedisStore) hashKey(scope, id string) string {
	return fmt.Sprintf("attrstore:%s:%s", scope, id)
}

func (s *RedisStore) Get(ctx context.Context, scope, id, key string) ([]byte, error) {
	raw, err := s.client.HGet(ctx, s.hashKey(scope, id), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attrstore: redis hget: %w", err)
	}
	return s.enc.Open(raw)
}

func (s *RedisStore) Set(ctx context.Context, scope, id, key string, value []byte) error {
	sealed, err := s.enc.Seal(value)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.hashKey(scope, id), key, sealed).Err(); err != nil {
		return fmt.Errorf("attrstore: redis hset: %w", err)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, scope, id, key string) error {
	if err := s.client.HDel(ctx, s.hashKey(scope, id), key).Err(); err != nil {
		return fmt.Errorf("attrstore: redis hdel: %w", err)
	}
	return nil
}
