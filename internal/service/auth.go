// Package service provides the vault's business logic: authorization codes,
// token issuance and quota-checked object storage. Persistence is delegated
// to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/SecureNotes/internal/errs"
	"github.com/atinyakov/SecureNotes/internal/models"
)

// CodeTTL is the lifetime of an authorization code.
const CodeTTL = 10 * time.Minute

// DefaultUsername is used when the authorize request carries no login hint.
const DefaultUsername = "demo"

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	EnsureUser(ctx context.Context, id, username string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	SaveAuthCode(ctx context.Context, c models.AuthCode) error
	ConsumeAuthCode(ctx context.Context, code string) (models.AuthCode, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateToken(userID, username string) (string, error)
	TTL() time.Duration
}

// Token is the result of a successful code exchange.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
	User        models.User
}

// AuthService implements the authorization code flow.
type AuthService struct {
	repo    AuthRepository
	tokens  TokenIssuer
	clients []string
	now     func() time.Time
}

// NewAuthService constructs an AuthService. clients lists the accepted app
// tokens.
func NewAuthService(repo AuthRepository, tokens TokenIssuer, clients []string) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, clients: clients, now: time.Now}
}

// Authorize issues a single-use code for username on behalf of clientID.
// An unknown client yields errs.ErrUnauthorized.
func (s *AuthService) Authorize(ctx context.Context, clientID, redirectURI, username string) (string, error) {
	if !slices.Contains(s.clients, clientID) {
		return "", errs.ErrUnauthorized
	}
	if username == "" {
		username = DefaultUsername
	}
	user, err := s.repo.EnsureUser(ctx, uuid.NewString(), username)
	if err != nil {
		return "", fmt.Errorf("authorize: %w", err)
	}
	code := models.AuthCode{
		Code:        uuid.NewString(),
		UserID:      user.ID,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		ExpiresAt:   s.now().Add(CodeTTL),
	}
	if err := s.repo.SaveAuthCode(ctx, code); err != nil {
		return "", fmt.Errorf("authorize: %w", err)
	}
	return code.Code, nil
}

// Exchange consumes code and issues an access token. The client and redirect
// URI must match the ones the code was issued for; any mismatch, as well as
// an unknown, used or expired code, yields errs.ErrInvalidGrant.
func (s *AuthService) Exchange(ctx context.Context, code, clientID, redirectURI string) (Token, error) {
	if code == "" {
		return Token{}, errs.ErrInvalidGrant
	}
	issued, err := s.repo.ConsumeAuthCode(ctx, code)
	if err != nil {
		return Token{}, err
	}
	if issued.ClientID != clientID || issued.RedirectURI != redirectURI {
		return Token{}, errs.ErrInvalidGrant
	}
	user, err := s.repo.GetUser(ctx, issued.UserID)
	if errors.Is(err, errs.ErrNotFound) {
		return Token{}, errs.ErrInvalidGrant
	}
	if err != nil {
		return Token{}, fmt.Errorf("exchange: %w", err)
	}
	access, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return Token{}, fmt.Errorf("exchange: %w", err)
	}
	return Token{AccessToken: access, ExpiresIn: s.tokens.TTL(), User: user}, nil
}
