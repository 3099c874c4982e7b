// Package wire defines the trust fabric's request/response framing and
// its tagged binary record shapes. Every record is a CBOR map keyed by
// small integers rather than field names, matching the "map-based, each
// field preceded by a numeric tag" self-describing binary encoding the
// protocol specifies.
package wire

// Method is the request verb, encoded as a single byte on the wire.
type Method uint8

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	case MethodPatch:
		return "PATCH"
	default:
		return "UNKNOWN"
	}
}

// Status is the reply outcome. These are protocol-level statuses, not
// HTTP status codes.
type Status uint16

const (
	StatusOk Status = iota
	StatusBadRequest
	StatusNotFound
	StatusUnauthorized
	StatusForbidden
	StatusMethodNotAllowed
	StatusNotImplemented
	StatusInternalServerError
)

// RequestHeader precedes every worker-to-worker request's optional body.
type RequestHeader struct {
	ID      uint32 `cbor:"0,keyasint"`
	Method  Method `cbor:"1,keyasint"`
	Path    string `cbor:"2,keyasint"`
	HasBody bool   `cbor:"3,keyasint"`
}

// ResponseHeader precedes every reply's optional body.
type ResponseHeader struct {
	ID      uint32 `cbor:"0,keyasint"`
	Re      uint32 `cbor:"1,keyasint"`
	Status  Status `cbor:"2,keyasint"`
	HasBody bool   `cbor:"3,keyasint"`
}

// Error is the body of any reply whose status is not Ok.
type Error struct {
	Path    string  `cbor:"0,keyasint"`
	Method  *Method `cbor:"1,keyasint,omitempty"`
	Message *string `cbor:"2,keyasint,omitempty"`
}

// Signature is a detached Ed25519 signature identified by the signing
// key's key_id.
type Signature struct {
	KeyID string `cbor:"0,keyasint"`
	Bytes []byte `cbor:"1,keyasint"`
}

// Signed wraps arbitrary signed bytes with their detached signature.
// Data is the canonical serialization of whatever record was signed,
// stored and verified exactly as-is.
type Signed struct {
	Data      []byte    `cbor:"0,keyasint"`
	Signature Signature `cbor:"1,keyasint"`
}

// Timestamp is unsigned seconds since a fixed epoch, monotone within a
// single issuer run, sourced from wall-clock time.
type Timestamp uint64

// MemberCredential is the payload a node signs to vouch for a member
// identity.
type MemberCredential struct {
	IssuedAt      Timestamp `cbor:"0,keyasint"`
	Member        string    `cbor:"1,keyasint"`
	Email         *string   `cbor:"2,keyasint,omitempty"`
	EmailVerified *bool     `cbor:"3,keyasint,omitempty"`
}

// EnrollerInfo is persisted under scope "enroller" keyed by identity.
type EnrollerInfo struct {
	RegisteredAt Timestamp `cbor:"0,keyasint"`
}

// Membership is the authority's issued record for an accepted oauth2
// flow signing request.
type Membership struct {
	IssuedAt   Timestamp         `cbor:"0,keyasint"`
	KeyID      string            `cbor:"1,keyasint"`
	PublicKey  []byte            `cbor:"2,keyasint"`
	Attributes map[string][]byte `cbor:"3,keyasint,omitempty"`
}

// SessionKey stably identifies a session-registry node across its
// lifetime: a random discriminator plus a reusable slot index.
type SessionKey struct {
	Rnd uint32 `cbor:"0,keyasint"`
	Idx uint32 `cbor:"1,keyasint"`
}

// Message is the medic's ping/pong payload routed through the bus.
type Message struct {
	Key  SessionKey `cbor:"0,keyasint"`
	Ping uint64      `cbor:"1,keyasint"`
}
