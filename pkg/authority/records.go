// Package authority implements the multi-flow signer worker: a single
// POST /sign address that verifies a caller-presented signature before
// acting on a discriminated request body (Oauth2, CreateSpace, or
// CreateProject).
package authority

import "github.com/trustmesh/node/pkg/wire"

// Kind discriminates a Request's flow.
type Kind uint8

const (
	KindOAuth2 Kind = iota
	KindCreateSpace
	KindCreateProject
)

// Request is the authority's POST /sign body: a discriminated union
// carrying the caller's signature over data, verified identically
// before any flow-specific action is taken.
type Request struct {
	Kind      Kind           `cbor:"0,keyasint"`
	Data      []byte         `cbor:"1,keyasint"`
	Signature wire.Signature `cbor:"2,keyasint"`
}

// OAuth2Payload is the decoded form of an Oauth2-flow Request's Data.
type OAuth2Payload struct {
	AccessToken string `cbor:"0,keyasint"`
}
