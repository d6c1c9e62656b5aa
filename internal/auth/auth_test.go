package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liarsbar/backend/internal/auth"
)

func TestStaticAuthenticateValid(t *testing.T) {
	a := auth.NewStaticAuthenticator("s3cret")

	id, err := a.Authenticate(context.Background(), "s3cret:42:alice:Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, "Alice", id.Nickname)
}

func TestStaticAuthenticateNicknameDefaultsToUsername(t *testing.T) {
	a := auth.NewStaticAuthenticator("s3cret")

	id, err := a.Authenticate(context.Background(), "s3cret:42:alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Nickname)
}

func TestStaticAuthenticateRejections(t *testing.T) {
	a := auth.NewStaticAuthenticator("s3cret")

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "s3cret"},
		{"wrong secret", "nope:42:alice"},
		{"non-numeric id", "s3cret:abc:alice"},
		{"zero id", "s3cret:0:alice"},
		{"negative id", "s3cret:-5:alice"},
		{"empty username", "s3cret:42:"},
		{"too many parts", "s3cret:42:alice:Alice:extra"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), tc.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}
