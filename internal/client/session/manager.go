package session

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/models"
)

// Vault is the part of the vault SDK the session needs.
type Vault interface {
	Configure(token, password string) error
	Clear()
	Token() string
	AuthURL() string
	ExchangeCode(ctx context.Context, code, password string) (*models.UserIdentity, error)
}

// CredentialStore persists the session triple.
type CredentialStore interface {
	Save(models.Credentials) error
	Load() (*models.Credentials, error)
	Clear() error
}

// Manager owns the session state. It starts in Loading and is safe for
// concurrent use.
type Manager struct {
	vault Vault
	store CredentialStore
	log   *zap.Logger

	exchangeMu sync.Mutex

	mu           sync.RWMutex
	state        State
	bootstrapped bool
}

// NewManager returns a Manager in the Loading phase.
func NewManager(v Vault, store CredentialStore, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		vault: v,
		store: store,
		log:   log,
		state: State{Phase: Loading},
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LoginURL returns the URL the user opens to authorize this client.
func (m *Manager) LoginURL() string {
	return m.vault.AuthURL()
}

// Bootstrap decides the initial state from loc and the credential store.
// loc is read exactly once; a redirect carrying "error" or "code" has its
// query stripped before Bootstrap returns. The returned State is valid even
// when err is non-nil.
func (m *Manager) Bootstrap(loc Location) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bootstrapped {
		return m.state, ErrAlreadyBootstrapped
	}
	m.bootstrapped = true

	u, err := loc.URL()
	if err != nil {
		m.log.Warn("cannot read location, ignoring redirect", zap.Error(err))
		u = &url.URL{}
	}
	q := u.Query()

	if authErr := q.Get("error"); authErr != "" {
		m.log.Warn("authorization failed",
			zap.String("error", authErr),
			zap.String("description", q.Get("error_description")),
		)
		m.state = State{Phase: Unauthenticated}
		return m.state, strip(loc, u)
	}

	if code := q.Get("code"); code != "" {
		m.state = State{Phase: NeedsPassword, AuthCode: code}
		return m.state, strip(loc, u)
	}

	creds, err := m.store.Load()
	if err != nil {
		m.state = State{Phase: Unauthenticated}
		return m.state, fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil {
		m.state = State{Phase: Unauthenticated}
		return m.state, nil
	}
	if err := m.vault.Configure(creds.Token, creds.Password); err != nil {
		m.state = State{Phase: Unauthenticated}
		return m.state, fmt.Errorf("restore session: %w", err)
	}

	user := creds.User
	m.state = State{Phase: Authenticated, User: &user}
	m.log.Debug("session restored", zap.String("user", user.Username))
	return m.state, nil
}

// strip removes query and fragment from the location.
func strip(loc Location, u *url.URL) error {
	clean := *u
	clean.RawQuery = ""
	clean.ForceQuery = false
	clean.Fragment = ""
	clean.RawFragment = ""
	if err := loc.Replace(&clean); err != nil {
		return fmt.Errorf("strip location: %w", err)
	}
	return nil
}

// Exchange trades the pending authorization code for a session. On failure
// the Manager stays in NeedsPassword with the same code and the error is an
// *AuthError. If the session works but cannot be persisted, the Manager is
// Authenticated and the persistence error is returned.
func (m *Manager) Exchange(ctx context.Context, password string) (State, error) {
	m.exchangeMu.Lock()
	defer m.exchangeMu.Unlock()

	cur := m.State()
	if cur.Phase != NeedsPassword {
		return cur, ErrNoPendingCode
	}
	if password == "" {
		return cur, ErrEmptyPassword
	}

	user, err := m.vault.ExchangeCode(ctx, cur.AuthCode, password)
	if err != nil {
		m.log.Warn("code exchange failed", zap.Error(err))
		return cur, &AuthError{Err: err}
	}
	if user == nil {
		user = &models.UserIdentity{}
	}

	m.mu.Lock()
	m.state = State{Phase: Authenticated, User: user}
	next := m.state
	m.mu.Unlock()

	err = m.store.Save(models.Credentials{
		Token:    m.vault.Token(),
		Password: password,
		User:     *user,
	})
	if err != nil {
		m.log.Error("cannot persist session", zap.Error(err))
		return next, fmt.Errorf("persist credentials: %w", err)
	}
	m.log.Info("signed in", zap.String("user", user.Username))
	return next, nil
}

// Logout forgets the session in memory and on disk.
func (m *Manager) Logout() error {
	m.vault.Clear()
	m.mu.Lock()
	m.state = State{Phase: Unauthenticated}
	m.mu.Unlock()
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
