package session

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/SecureNotes/internal/models"
	"github.com/atinyakov/SecureNotes/internal/vault"
)

type fakeVault struct {
	token, password string
	exchangeCalls   int
	exchangeFn      func(code, password string) (*models.UserIdentity, error)
}

func (v *fakeVault) Configure(token, password string) error {
	v.token, v.password = token, password
	return nil
}

func (v *fakeVault) Clear()          { v.token, v.password = "", "" }
func (v *fakeVault) Token() string   { return v.token }
func (v *fakeVault) AuthURL() string { return "https://vault.test/oauth/authorize?client_id=app" }

func (v *fakeVault) ExchangeCode(_ context.Context, code, password string) (*models.UserIdentity, error) {
	v.exchangeCalls++
	user, err := v.exchangeFn(code, password)
	if err != nil {
		return nil, err
	}
	v.token, v.password = "tok-"+code, password
	return user, nil
}

type fakeStore struct {
	saved   *models.Credentials
	loadFn  func() (*models.Credentials, error)
	saveErr error
	cleared int
}

func (s *fakeStore) Save(c models.Credentials) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = &c
	return nil
}

func (s *fakeStore) Load() (*models.Credentials, error) {
	if s.loadFn != nil {
		return s.loadFn()
	}
	return s.saved, nil
}

func (s *fakeStore) Clear() error {
	s.cleared++
	s.saved = nil
	return nil
}

type failingLocation struct{ *URLLocation }

func (failingLocation) Replace(*url.URL) error { return errors.New("read-only location") }

func mustLocation(t *testing.T, raw string) *URLLocation {
	t.Helper()
	loc, err := NewURLLocation(raw)
	require.NoError(t, err)
	return loc
}

var bob = models.UserIdentity{ID: "u2", Username: "bob"}

func TestBootstrap_ErrorParam(t *testing.T) {
	store := &fakeStore{loadFn: func() (*models.Credentials, error) {
		t.Fatal("store must not be consulted")
		return nil, nil
	}}
	m := NewManager(&fakeVault{}, store, nil)
	loc := mustLocation(t, "http://localhost:8765/callback?error=access_denied&code=abc#frag")

	st, err := m.Bootstrap(loc)
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, st.Phase)
	assert.Empty(t, st.AuthCode)
	assert.Equal(t, "http://localhost:8765/callback", loc.String())
}

func TestBootstrap_CodeParam(t *testing.T) {
	store := &fakeStore{saved: &models.Credentials{Token: "t", Password: "p", User: bob}}
	v := &fakeVault{}
	m := NewManager(v, store, nil)
	loc := mustLocation(t, "http://localhost:8765/callback?code=abc&state=x")

	st, err := m.Bootstrap(loc)
	require.NoError(t, err)
	assert.Equal(t, NeedsPassword, st.Phase)
	assert.Equal(t, "abc", st.AuthCode)
	assert.Nil(t, st.User)
	assert.Equal(t, "http://localhost:8765/callback", loc.String())
	assert.Empty(t, v.token, "a pending code takes priority over a stored session")
}

func TestBootstrap_StoredSession(t *testing.T) {
	store := &fakeStore{saved: &models.Credentials{Token: "t", Password: "p", User: bob}}
	v := &fakeVault{exchangeFn: func(string, string) (*models.UserIdentity, error) {
		t.Fatal("no exchange expected")
		return nil, nil
	}}
	m := NewManager(v, store, nil)
	loc := mustLocation(t, "http://localhost:8765/app")

	st, err := m.Bootstrap(loc)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, st.Phase)
	require.NotNil(t, st.User)
	assert.Equal(t, bob, *st.User)
	assert.Equal(t, "t", v.token)
	assert.Equal(t, "p", v.password)
	assert.Equal(t, "http://localhost:8765/app", loc.String())
	assert.Equal(t, st, m.State())
}

func TestBootstrap_NoSession(t *testing.T) {
	m := NewManager(&fakeVault{}, &fakeStore{}, nil)
	assert.Equal(t, Loading, m.State().Phase)

	st, err := m.Bootstrap(mustLocation(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, st.Phase)
}

func TestBootstrap_Once(t *testing.T) {
	m := NewManager(&fakeVault{}, &fakeStore{}, nil)
	_, err := m.Bootstrap(mustLocation(t, "http://x/?code=abc"))
	require.NoError(t, err)

	st, err := m.Bootstrap(mustLocation(t, "http://x/?code=def"))
	assert.ErrorIs(t, err, ErrAlreadyBootstrapped)
	assert.Equal(t, "abc", st.AuthCode)
}

func TestBootstrap_StripFailure(t *testing.T) {
	m := NewManager(&fakeVault{}, &fakeStore{}, nil)
	st, err := m.Bootstrap(failingLocation{mustLocation(t, "http://x/?code=abc")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strip location")
	assert.Equal(t, NeedsPassword, st.Phase)
	assert.Equal(t, "abc", st.AuthCode)
}

func TestBootstrap_LoadFailure(t *testing.T) {
	store := &fakeStore{loadFn: func() (*models.Credentials, error) {
		return nil, errors.New("corrupt")
	}}
	m := NewManager(&fakeVault{}, store, nil)
	st, err := m.Bootstrap(mustLocation(t, ""))
	require.Error(t, err)
	assert.Equal(t, Unauthenticated, st.Phase)
}

func TestExchange_Success(t *testing.T) {
	v := &fakeVault{exchangeFn: func(code, password string) (*models.UserIdentity, error) {
		assert.Equal(t, "abc", code)
		assert.Equal(t, "s3cret", password)
		return &bob, nil
	}}
	store := &fakeStore{}
	m := NewManager(v, store, nil)
	_, err := m.Bootstrap(mustLocation(t, "http://x/?code=abc"))
	require.NoError(t, err)

	st, err := m.Exchange(context.Background(), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, st.Phase)
	assert.Equal(t, bob, *st.User)
	assert.Empty(t, st.AuthCode)
	require.NotNil(t, store.saved)
	assert.Equal(t, models.Credentials{Token: "tok-abc", Password: "s3cret", User: bob}, *store.saved)

	// a second process restores the session without the network
	v2 := &fakeVault{}
	m2 := NewManager(v2, store, nil)
	st2, err := m2.Bootstrap(mustLocation(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Authenticated, st2.Phase)
	assert.Equal(t, "tok-abc", v2.token)
	assert.Equal(t, 0, v2.exchangeCalls)
}

func TestExchange_FailureKeepsCode(t *testing.T) {
	sdkErr := &vault.StatusError{StatusCode: 400, Message: "invalid_grant"}
	v := &fakeVault{exchangeFn: func(string, string) (*models.UserIdentity, error) {
		return nil, sdkErr
	}}
	store := &fakeStore{}
	m := NewManager(v, store, nil)
	_, err := m.Bootstrap(mustLocation(t, "http://x/?code=abc"))
	require.NoError(t, err)

	st, err := m.Exchange(context.Background(), "pw")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, sdkErr)
	assert.Equal(t, NeedsPassword, st.Phase)
	assert.Equal(t, "abc", st.AuthCode)
	assert.Equal(t, st, m.State())
	assert.Nil(t, store.saved)

	// retry with the same code
	v.exchangeFn = func(string, string) (*models.UserIdentity, error) { return &bob, nil }
	st, err = m.Exchange(context.Background(), "pw2")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, st.Phase)
	assert.Equal(t, 2, v.exchangeCalls)
}

func TestExchange_Preconditions(t *testing.T) {
	v := &fakeVault{exchangeFn: func(string, string) (*models.UserIdentity, error) { return &bob, nil }}
	m := NewManager(v, &fakeStore{}, nil)

	_, err := m.Exchange(context.Background(), "pw")
	assert.ErrorIs(t, err, ErrNoPendingCode)

	_, err = m.Bootstrap(mustLocation(t, "http://x/?code=abc"))
	require.NoError(t, err)
	st, err := m.Exchange(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPassword)
	assert.Equal(t, NeedsPassword, st.Phase)
	assert.Equal(t, 0, v.exchangeCalls)
}

func TestExchange_PersistFailure(t *testing.T) {
	v := &fakeVault{exchangeFn: func(string, string) (*models.UserIdentity, error) { return &bob, nil }}
	m := NewManager(v, &fakeStore{saveErr: errors.New("disk full")}, nil)
	_, err := m.Bootstrap(mustLocation(t, "http://x/?code=abc"))
	require.NoError(t, err)

	st, err := m.Exchange(context.Background(), "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist credentials")
	assert.Equal(t, Authenticated, st.Phase)
}

func TestLogout(t *testing.T) {
	store := &fakeStore{saved: &models.Credentials{Token: "t", Password: "p", User: bob}}
	v := &fakeVault{}
	m := NewManager(v, store, nil)
	_, err := m.Bootstrap(mustLocation(t, ""))
	require.NoError(t, err)

	require.NoError(t, m.Logout())
	assert.Equal(t, Unauthenticated, m.State().Phase)
	assert.Empty(t, v.token)
	assert.Nil(t, store.saved)
	assert.Equal(t, 1, store.cleared)
}

func TestLoginURL(t *testing.T) {
	m := NewManager(&fakeVault{}, &fakeStore{}, nil)
	assert.Contains(t, m.LoginURL(), "/oauth/authorize")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "needs-password", NeedsPassword.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}
