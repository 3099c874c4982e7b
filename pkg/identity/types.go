// Package identity models the short opaque identifiers ("IdentityId" in
// spec §3) that name cryptographic identities across the trust fabric, and
// the JWT bearer assertion a secure channel attaches to a bus envelope to
// carry its verified peer identity (spec §4.6/§4.7's "verified secure-
// channel identity metadata").
package identity

// ID is a node's short opaque identity identifier — the textual form of
// its key-id (spec §3 "IdentityId").
type ID string

func (id ID) String() string { return string(id) }
