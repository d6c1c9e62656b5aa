package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liarsbar/backend/internal/auth"
)

func TestRemoteAuthenticateValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok123", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"userId":42,"username":"alice","nickname":"Alice"}`))
	}))
	defer srv.Close()

	a := auth.NewRemoteAuthenticator(srv.URL, time.Second)
	id, err := a.Authenticate(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "Alice", id.Nickname)
}

func TestRemoteAuthenticateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := auth.NewRemoteAuthenticator(srv.URL, time.Second)
	_, err := a.Authenticate(context.Background(), "bad")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRemoteAuthenticateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := auth.NewRemoteAuthenticator(srv.URL, time.Second)
	_, err := a.Authenticate(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRemoteAuthenticateIncompleteIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"userId":0,"username":""}`))
	}))
	defer srv.Close()

	a := auth.NewRemoteAuthenticator(srv.URL, time.Second)
	_, err := a.Authenticate(context.Background(), "tok")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
