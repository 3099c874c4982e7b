package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trustmesh/node/pkg/attrstore"
	"github.com/trustmesh/node/pkg/auditsink"
	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/wire"
)

const memberAttributeKey = "credential"

// ErrSignerRejected wraps a non-Ok status returned by the signer worker.
type ErrSignerRejected struct {
	Status wire.Status
}

func (e *ErrSignerRejected) Error() string {
	return fmt.Sprintf("credential: signer returned status %d", e.Status)
}

// Issuer builds, signs, and persists MemberCredential envelopes. Both
// the direct and oauth2 authenticators share it so the signing and
// storage steps stay in exactly one place.
type Issuer struct {
	bus        *netbus.Bus
	signerAddr netbus.Address
	store      attrstore.Store
	audit      auditsink.Sink
}

// NewIssuer wires an Issuer to the signer worker at signerAddr and the
// attribute store that will hold issued envelopes. Audit export starts
// disabled; call WithAuditSink to enable it.
func NewIssuer(bus *netbus.Bus, signerAddr netbus.Address, store attrstore.Store) *Issuer {
	return &Issuer{bus: bus, signerAddr: signerAddr, store: store, audit: auditsink.NoopSink{}}
}

// WithAuditSink sets the best-effort destination every subsequently
// issued envelope is mirrored to, and returns the Issuer for chaining.
func (i *Issuer) WithAuditSink(sink auditsink.Sink) *Issuer {
	i.audit = sink
	return i
}

// Issue builds a MemberCredential for member (with the given issuance
// time and optional email fields), asks the signer worker to sign its
// canonical encoding, persists the resulting envelope under scope keyed
// by member, and returns it.
func (i *Issuer) Issue(ctx context.Context, scope, member string, now wire.Timestamp, email *string, emailVerified *bool) (wire.Signed, error) {
	cred := wire.MemberCredential{
		IssuedAt:      now,
		Member:        member,
		Email:         email,
		EmailVerified: emailVerified,
	}
	data, err := wire.Encode(cred)
	if err != nil {
		return wire.Signed{}, fmt.Errorf("credential: encode member credential: %w", err)
	}

	signed, err := i.sign(ctx, data)
	if err != nil {
		return wire.Signed{}, err
	}

	envelope, err := wire.Encode(signed)
	if err != nil {
		return wire.Signed{}, fmt.Errorf("credential: encode signed envelope: %w", err)
	}
	if err := i.store.Set(ctx, scope, member, memberAttributeKey, envelope); err != nil {
		return wire.Signed{}, fmt.Errorf("credential: persist signed envelope: %w", err)
	}

	i.exportAudit(envelope, now, member, email, emailVerified)

	return signed, nil
}

// exportAudit mirrors the just-issued envelope to the configured audit
// sink, fire-and-forget: a slow or failing backend never delays or
// fails the request that already succeeded.
func (i *Issuer) exportAudit(envelope []byte, now wire.Timestamp, member string, email *string, emailVerified *bool) {
	if _, ok := i.audit.(auditsink.NoopSink); ok {
		return
	}
	fp, err := Fingerprint(uint64(now), member, email, emailVerified)
	if err != nil {
		slog.Warn("credential: compute audit fingerprint", "member", member, "error", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := i.audit.Export(ctx, auditsink.Record{Fingerprint: fp, Data: envelope}); err != nil {
			slog.Warn("credential: audit export failed", "member", member, "fingerprint", fp, "error", err)
		}
	}()
}

// Lookup returns the previously issued envelope for member under scope,
// or attrstore.ErrNotFound.
func (i *Issuer) Lookup(ctx context.Context, scope, member string) (wire.Signed, error) {
	raw, err := i.store.Get(ctx, scope, member, memberAttributeKey)
	if err != nil {
		return wire.Signed{}, err
	}
	var signed wire.Signed
	if err := wire.Decode(raw, &signed); err != nil {
		return wire.Signed{}, fmt.Errorf("credential: decode signed envelope: %w", err)
	}
	return signed, nil
}

func (i *Issuer) sign(ctx context.Context, data []byte) (wire.Signed, error) {
	hdr := wire.RequestHeader{Method: wire.MethodPost, Path: "/sign", HasBody: true}
	respHdr, body, err := netbus.Call(ctx, i.bus, i.signerAddr, hdr, data)
	if err != nil {
		return wire.Signed{}, fmt.Errorf("credential: call signer: %w", err)
	}
	if respHdr.Status != wire.StatusOk {
		return wire.Signed{}, &ErrSignerRejected{Status: respHdr.Status}
	}
	var signed wire.Signed
	if err := wire.Decode(body, &signed); err != nil {
		return wire.Signed{}, fmt.Errorf("credential: decode signer response: %w", err)
	}
	return signed, nil
}
