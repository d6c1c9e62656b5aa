// Package auth verifies client credentials at the connection edge and
// produces the identity the rest of the server trusts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidToken rejects a credential that does not verify.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is a verified user.
type Identity struct {
	UserID   int64
	Username string
	Nickname string
}

// Authenticator turns a bearer token into an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// StaticAuthenticator verifies self-describing dev tokens of the form
// "<secret>:<userId>:<username>[:<nickname>]". It exists for local
// development and tests; production deployments use the remote verifier.
type StaticAuthenticator struct {
	secret string
}

// NewStaticAuthenticator creates a static-token authenticator.
//
// Precondition: secret must be non-empty.
func NewStaticAuthenticator(secret string) *StaticAuthenticator {
	return &StaticAuthenticator{secret: secret}
}

// Authenticate parses and verifies a static token.
//
// Postcondition: Returns ErrInvalidToken (possibly wrapped) on any
// malformed or mis-signed token.
func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (Identity, error) {
	parts := strings.Split(token, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Identity{}, fmt.Errorf("%w: malformed", ErrInvalidToken)
	}
	if parts[0] != a.secret {
		return Identity{}, fmt.Errorf("%w: bad secret", ErrInvalidToken)
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("%w: bad user id %q", ErrInvalidToken, parts[1])
	}
	if parts[2] == "" {
		return Identity{}, fmt.Errorf("%w: empty username", ErrInvalidToken)
	}

	id := Identity{UserID: userID, Username: parts[2], Nickname: parts[2]}
	if len(parts) == 4 && parts[3] != "" {
		id.Nickname = parts[3]
	}
	return id, nil
}
