// Package attrstore implements the authenticated attribute store
// contract: a scope/id/key -> bytes mapping consulted by the
// authenticator workers (through pkg/credential) and served over the bus
// by pkg/attrapi. The contract says nothing about
// on-disk layout; each backend is free to choose its own.
package attrstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored at scope/id/key.
var ErrNotFound = errors.New("attrstore: not found")

// Store is safe for concurrent Get/Set/Del.
type Store interface {
	Get(ctx context.Context, scope, id, key string) ([]byte, error)
	Set(ctx context.Context, scope, id, key string, value []byte) error
	Del(ctx context.Context, scope, id, key string) error
}

// Well-known scopes per the persistence layout contract.
const (
	ScopeEnroller = "enroller"
	ScopeDirect   = "direct"
	ScopeMember   = "member"
	ScopeOAuth2   = "oauth2"
)
