package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RemoteAuthenticator verifies tokens against an external account
// service over HTTP.
type RemoteAuthenticator struct {
	endpoint string
	client   *http.Client
}

// NewRemoteAuthenticator creates a remote verifier.
//
// Precondition: endpoint must be a valid URL; timeout must be positive.
func NewRemoteAuthenticator(endpoint string, timeout time.Duration) *RemoteAuthenticator {
	return &RemoteAuthenticator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type verifyResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

// Authenticate posts the token to the verification endpoint.
//
// Postcondition: Returns ErrInvalidToken when the service rejects the
// token, or a transport error otherwise.
func (a *RemoteAuthenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: build verify request: %w", err)
	}
	req.URL.RawQuery = form.Encode()

	resp, err := a.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: verify call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Identity{}, fmt.Errorf("%w: rejected by account service", ErrInvalidToken)
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("auth: verify endpoint returned %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Identity{}, fmt.Errorf("auth: decode verify response: %w", err)
	}
	if body.UserID <= 0 || body.Username == "" {
		return Identity{}, fmt.Errorf("%w: incomplete identity", ErrInvalidToken)
	}

	id := Identity{UserID: body.UserID, Username: body.Username, Nickname: body.Nickname}
	if id.Nickname == "" {
		id.Nickname = id.Username
	}
	return id, nil
}
