package token

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPasswordGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		id, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "clientkey", id)
		assert.Equal(t, "clientsecret", secret)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "portaladmin", r.PostForm.Get("username"))
		assert.Equal(t, "pw", r.PostForm.Get("password"))
		assert.Equal(t, "openid", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Token{
			AccessToken:  uuid.NewString(),
			RefreshToken: uuid.NewString(),
			TokenType:    "Bearer",
			ExpiresIn:    3600,
			Scope:        "openid",
		})
	}))
	defer server.Close()

	c := New(server.URL+"/", "clientkey", "clientsecret", server.Client(), testLogger())
	tok, err := c.PasswordGrant(context.Background(), "portaladmin", "pw", "openid")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, 3600, tok.ExpiresIn)

	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, issued.Add(time.Hour), tok.Expiry(issued))
}

func TestPasswordGrantError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"invalid_client","error_description":"Client credentials are invalid."}`)
	}))
	defer server.Close()

	c := New(server.URL, "k", "s", server.Client(), testLogger())
	_, err := c.PasswordGrant(context.Background(), "u", "p", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRemoteFault))

	remote, ok := errors.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, remote.Status)
	assert.Equal(t, "invalid_client Client credentials are invalid.", remote.Fault)
}

func TestPasswordGrantMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"token_type":"Bearer"}`)
	}))
	defer server.Close()

	c := New(server.URL, "k", "s", server.Client(), testLogger())
	_, err := c.PasswordGrant(context.Background(), "u", "p", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnexpectedResponse))
}

func TestInspectOpaque(t *testing.T) {
	info, err := Inspect(uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, KindOpaque, info.Kind)
}

func TestInspectJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "portaladmin",
		Issuer:    "https://localhost:9443/oauth2/token",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	info, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, KindJWT, info.Kind)
	assert.Equal(t, "portaladmin", info.Subject)
	assert.Equal(t, "https://localhost:9443/oauth2/token", info.Issuer)
	assert.True(t, exp.Equal(info.ExpiresAt))
}

func TestInspectGarbage(t *testing.T) {
	_, err := Inspect("not-a-token")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnexpectedResponse))
}
