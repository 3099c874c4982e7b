// Package oauth2authn implements the OAuth2 authenticator: POST
// /register exchanges a prospective member's access token for a signed
// MemberCredential by calling out to a configured user-profile endpoint,
// and GET /member/{id} serves previously issued envelopes, mirroring
// the direct authenticator's lookup surface.
package oauth2authn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProfileResult is what the configured user-profile endpoint told us
// about the caller's access token.
type ProfileResult struct {
	Email         string
	EmailVerified bool
}

// ProfileOutcome classifies the profile fetch for the worker's dispatch.
type ProfileOutcome int

const (
	ProfileOutcomeOK ProfileOutcome = iota
	ProfileOutcomeUnauthorized
	ProfileOutcomeError
)

// ProfileFetcher retrieves profile information for an access token.
type ProfileFetcher interface {
	Fetch(ctx context.Context, accessToken string) (ProfileResult, ProfileOutcome, error)
}

// HTTPProfileFetcher calls a configured HTTPS user-profile URL with
// Authorization: Bearer <token>, per spec 4.7.
type HTTPProfileFetcher struct {
	ProfileURL string
	Client     *http.Client
}

// NewHTTPProfileFetcher builds a fetcher with a bounded-timeout client,
// matching the teacher's OAuth HTTP client defaults.
func NewHTTPProfileFetcher(profileURL string) *HTTPProfileFetcher {
	return &HTTPProfileFetcher{
		ProfileURL: profileURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type profileResponseBody struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Fetch performs the outbound profile request and classifies the
// result per spec 4.7: 200 -> OK, 401 -> Unauthorized, anything else ->
// Error.
func (f *HTTPProfileFetcher) Fetch(ctx context.Context, accessToken string) (ProfileResult, ProfileOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ProfileURL, nil)
	if err != nil {
		return ProfileResult{}, ProfileOutcomeError, fmt.Errorf("oauth2authn: build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return ProfileResult{}, ProfileOutcomeError, fmt.Errorf("oauth2authn: profile request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var body profileResponseBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return ProfileResult{}, ProfileOutcomeError, fmt.Errorf("oauth2authn: decode profile response: %w", err)
		}
		return ProfileResult{Email: body.Email, EmailVerified: body.EmailVerified}, ProfileOutcomeOK, nil
	case http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ProfileResult{}, ProfileOutcomeUnauthorized, nil
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ProfileResult{}, ProfileOutcomeError, fmt.Errorf("oauth2authn: profile endpoint returned status %d", resp.StatusCode)
	}
}
