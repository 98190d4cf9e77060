// Package http provides the vault's HTTP handlers: the authorization code
// flow under /oauth and the bearer-protected object API under /api.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/errs"
	"github.com/atinyakov/SecureNotes/internal/models"
	"github.com/atinyakov/SecureNotes/internal/service"
)

// AuthService defines the authorization operations required by the
// HTTP handlers.
type AuthService interface {
	Authorize(ctx context.Context, clientID, redirectURI, username string) (string, error)
	Exchange(ctx context.Context, code, clientID, redirectURI string) (service.Token, error)
}

// AuthHandler handles the authorize and token endpoints.
type AuthHandler struct {
	// AuthService performs the underlying authorization operations.
	AuthService AuthService
	// Log receives internal errors.
	Log *zap.Logger
}

// TokenRequest is the JSON body of POST /oauth/token.
type TokenRequest struct {
	GrantType   string `json:"grant_type"`
	Code        string `json:"code"`
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`
}

// TokenResponse is the JSON body returned by a successful exchange.
type TokenResponse struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresIn   int64               `json:"expires_in"`
	User        models.UserIdentity `json:"user"`
}

// Authorize issues an authorization code and redirects the user agent back
// to redirect_uri with it. Consent is implicit on the development server.
// An unknown client is redirected with error=unauthorized_client.
func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || q.Get("redirect_uri") == "" || !redirect.IsAbs() {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}
	if rt := q.Get("response_type"); rt != "" && rt != "code" {
		redirectWith(w, r, redirect, "error", "unsupported_response_type")
		return
	}

	code, err := h.AuthService.Authorize(r.Context(), q.Get("client_id"), redirect.String(), q.Get("login_hint"))
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		redirectWith(w, r, redirect, "error", "unauthorized_client")
	case err != nil:
		h.logger().Error("authorize failed", zap.Error(err))
		redirectWith(w, r, redirect, "error", "server_error")
	default:
		redirectWith(w, r, redirect, "code", code)
	}
}

// Token exchanges an authorization code for an access token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.GrantType != "authorization_code" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}

	tok, err := h.AuthService.Exchange(r.Context(), req.Code, req.ClientID, req.RedirectURI)
	switch {
	case errors.Is(err, errs.ErrInvalidGrant):
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
		return
	case err != nil:
		h.logger().Error("token exchange failed", zap.Error(err))
		writeOAuthError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tok.ExpiresIn.Seconds()),
		User:        models.UserIdentity{ID: tok.User.ID, Username: tok.User.Username},
	})
}

func (h *AuthHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func redirectWith(w http.ResponseWriter, r *http.Request, target *url.URL, key, value string) {
	u := *target
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
