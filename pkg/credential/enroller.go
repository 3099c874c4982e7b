// Package credential implements the enroller registry and the shared
// credential-issuance flow (build a MemberCredential, sign it through
// the signer worker, persist the signed envelope) that both the direct
// and oauth2 authenticators drive.
package credential

import (
	"context"
	"fmt"

	"github.com/trustmesh/node/pkg/attrstore"
	"github.com/trustmesh/node/pkg/wire"
)

const enrollerAttributeKey = "info"

// EnrollerRegistry persists Enroller registration records under scope
// "enroller", keyed by identity, per the data model.
type EnrollerRegistry struct {
	store attrstore.Store
}

// NewEnrollerRegistry wraps store for enroller bookkeeping.
func NewEnrollerRegistry(store attrstore.Store) *EnrollerRegistry {
	return &EnrollerRegistry{store: store}
}

// Register writes EnrollerInfo{RegisteredAt: now} for identity.
func (r *EnrollerRegistry) Register(ctx context.Context, identity string, now wire.Timestamp) error {
	info := wire.EnrollerInfo{RegisteredAt: now}
	raw, err := wire.Encode(info)
	if err != nil {
		return fmt.Errorf("credential: encode enroller info: %w", err)
	}
	return r.store.Set(ctx, attrstore.ScopeEnroller, identity, enrollerAttributeKey, raw)
}

// Get returns identity's EnrollerInfo, or attrstore.ErrNotFound.
func (r *EnrollerRegistry) Get(ctx context.Context, identity string) (wire.EnrollerInfo, error) {
	raw, err := r.store.Get(ctx, attrstore.ScopeEnroller, identity, enrollerAttributeKey)
	if err != nil {
		return wire.EnrollerInfo{}, err
	}
	var info wire.EnrollerInfo
	if err := wire.Decode(raw, &info); err != nil {
		return wire.EnrollerInfo{}, fmt.Errorf("credential: decode enroller info: %w", err)
	}
	return info, nil
}

// Deregister removes identity's enroller record.
func (r *EnrollerRegistry) Deregister(ctx context.Context, identity string) error {
	return r.store.Del(ctx, attrstore.ScopeEnroller, identity, enrollerAttributeKey)
}

// IsEnroller reports whether identity is currently registered.
func (r *EnrollerRegistry) IsEnroller(ctx context.Context, identity string) (bool, error) {
	_, err := r.Get(ctx, identity)
	if err == attrstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
