// Package netmodel describes the secure-channel metadata a transport
// layer attaches to a bus envelope, and how workers turn that metadata
// into a verified peer identity using pkg/identity's token machinery.
package netmodel

import (
	"fmt"

	"github.com/trustmesh/node/pkg/identity"
	"github.com/trustmesh/node/pkg/netbus"
)

// CredentialMode describes what a secure channel requires of its peer
// before traffic is authenticated as member-facing.
type CredentialMode int

const (
	CredentialModeNone CredentialMode = iota
	CredentialModeRequired
)

// SecureChannelInfo is unique per local_addr: a node may have many
// channels, each with its own route and authorization policy.
type SecureChannelInfo struct {
	Route                 []netbus.Address
	LocalAddr              netbus.Address
	AuthorizedIdentifiers []identity.ID
	CredentialMode        CredentialMode
}

// VerifiedPeer resolves the verified peer identity a secure channel
// attached to env, or ("", false) if the envelope carries no assertion
// (an unauthenticated request).
func VerifiedPeer(tm *identity.TokenManager, env netbus.Envelope) (identity.ID, bool, error) {
	if env.PeerAssertion == "" {
		return "", false, nil
	}
	peer, err := tm.Verify(env.PeerAssertion)
	if err != nil {
		return "", false, fmt.Errorf("netmodel: invalid peer assertion: %w", err)
	}
	return peer, true, nil
}

// Authorized reports whether peer is in info's authorized identifier
// list. An empty list means any successfully verified peer is
// authorized.
func (info SecureChannelInfo) Authorized(peer identity.ID) bool {
	if len(info.AuthorizedIdentifiers) == 0 {
		return true
	}
	for _, id := range info.AuthorizedIdentifiers {
		if id == peer {
			return true
		}
	}
	return false
}
