package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserIDFromContext(r.Context())))
	})
}

func TestGenerateAndValidate(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	raw, err := ti.GenerateToken("u1", "alice")
	require.NoError(t, err)

	claims, err := ti.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, time.Hour, ti.TTL())
}

func TestValidateToken_Rejects(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	good, err := ti.GenerateToken("u1", "alice")
	require.NoError(t, err)

	other := NewTokenIssuer("other", time.Hour)
	foreign, err := other.GenerateToken("u1", "alice")
	require.NoError(t, err)

	expired := NewTokenIssuer("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, err := expired.GenerateToken("u1", "alice")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": foreign,
		"expired":      stale,
		"alg none":     none,
		"garbage":      "not.a.token",
		"truncated":    good[:len(good)-4],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ti.ValidateToken(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenAuth(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	raw, err := ti.GenerateToken("u1", "alice")
	require.NoError(t, err)
	h := ti.TokenAuth(echoUser())

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer " + raw, http.StatusOK, "u1"},
		{"lowercase scheme", "bearer " + raw, http.StatusOK, "u1"},
		{"missing", "", http.StatusUnauthorized, ErrMissingAuthHeader.Error()},
		{"basic", "Basic abc", http.StatusUnauthorized, ErrInvalidAuthHeader.Error()},
		{"no token", "Bearer ", http.StatusUnauthorized, ErrInvalidAuthHeader.Error()},
		{"bad token", "Bearer xyz", http.StatusUnauthorized, ErrInvalidToken.Error()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/objects", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestGetUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetUserIDFromContext(req.Context()))
	assert.Equal(t, "u2", GetUserIDFromContext(WithUserID(req.Context(), "u2")))
}
