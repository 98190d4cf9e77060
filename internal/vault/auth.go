package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/atinyakov/SecureNotes/internal/models"
)

type tokenRequest struct {
	GrantType   string `json:"grant_type"`
	Code        string `json:"code"`
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`
}

type tokenResponse struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresIn   int64               `json:"expires_in"`
	User        models.UserIdentity `json:"user"`
}

// ExchangeCode trades an authorization code for an access token and then
// configures the client with that token and password. Only the code, the
// client id and the redirect URI go over the wire.
func (c *Client) ExchangeCode(ctx context.Context, code, password string) (*models.UserIdentity, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/oauth/token", "", tokenRequest{
		GrantType:   "authorization_code",
		Code:        code,
		ClientID:    c.appToken,
		RedirectURI: c.redirectURI,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, errors.New("exchange code: empty access token in response")
	}
	if err := c.Configure(resp.AccessToken, password); err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	user := resp.User
	return &user, nil
}
