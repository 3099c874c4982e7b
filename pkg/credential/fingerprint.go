package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// auditRecord is the JSON projection of a MemberCredential used only for
// the audit fingerprint below — never the wire encoding. Signed.Data
// keeps signing and verification on the CBOR form in pkg/wire; this
// exists solely so an external audit trail (pkg/auditsink) can key
// exported envelopes by a stable, cross-tool-verifiable digest.
type auditRecord struct {
	IssuedAt      uint64  `json:"issued_at"`
	Member        string  `json:"member"`
	Email         *string `json:"email,omitempty"`
	EmailVerified *bool   `json:"email_verified,omitempty"`
}

// Fingerprint returns the hex SHA-256 digest of the RFC 8785 JSON
// Canonicalization Scheme form of a member credential's fields, giving
// the audit sink a stable identifier independent of CBOR field
// ordering or encoder version.
func Fingerprint(issuedAt uint64, member string, email *string, emailVerified *bool) (string, error) {
	raw, err := json.Marshal(auditRecord{
		IssuedAt:      issuedAt,
		Member:        member,
		Email:         email,
		EmailVerified: emailVerified,
	})
	if err != nil {
		return "", fmt.Errorf("credential: marshal audit record: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("credential: jcs transform: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
