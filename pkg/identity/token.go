package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ChannelClaims is the JWT payload a secure channel's handshake layer
// attaches to an in-process bus envelope, asserting which IdentityId it
// verified the remote peer as. Workers never trust ChannelClaims unless
// they came back through TokenManager.Verify.
type ChannelClaims struct {
	jwt.RegisteredClaims
	PeerID ID `json:"peer_id"`
}

// TokenManager issues and validates ChannelClaims assertions using a
// rotating KeySet.
type TokenManager struct {
	keySet KeySet
}

func NewTokenManager(ks KeySet) *TokenManager {
	return &TokenManager{keySet: ks}
}

// Assert mints a short-lived assertion that peer is the verified identity
// behind the current secure channel.
func (tm *TokenManager) Assert(peer ID, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := ChannelClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(peer),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		PeerID: peer,
	}
	return tm.keySet.Sign(context.Background(), claims)
}

// Verify parses and validates an assertion, returning the peer identity it
// vouches for.
func (tm *TokenManager) Verify(token string) (ID, error) {
	parsed, err := jwt.ParseWithClaims(token, &ChannelClaims{}, tm.keySet.KeyFunc())
	if err != nil {
		return "", fmt.Errorf("identity: invalid channel assertion: %w", err)
	}
	claims, ok := parsed.Claims.(*ChannelClaims)
	if !ok || !parsed.Valid {
		return "", jwt.ErrTokenSignatureInvalid
	}
	return claims.PeerID, nil
}
