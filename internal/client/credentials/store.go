// Package credentials persists the session triple (access token, encryption
// password, user identity) across process restarts.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/models"
)

// Keys under which the triple is stored.
const (
	KeyToken    = "syncvault_token"
	KeyPassword = "syncvault_password"
	KeyUser     = "syncvault_user"
)

// Medium is a durable string key-value store.
type Medium interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Store reads and writes Credentials on a Medium.
type Store struct {
	medium Medium
	log    *zap.Logger
}

// NewStore returns a Store backed by m. A nil log disables logging.
func NewStore(m Medium, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{medium: m, log: log}
}

// Save writes all three parts. The caller only saves after a successful
// exchange, so the parts are stored as given.
func (s *Store) Save(c models.Credentials) error {
	user, err := json.Marshal(c.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.medium.Set(KeyToken, c.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := s.medium.Set(KeyPassword, c.Password); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	if err := s.medium.Set(KeyUser, string(user)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Load returns the stored credentials, or nil when any part is missing or
// empty. A user record that does not decode counts as missing.
func (s *Store) Load() (*models.Credentials, error) {
	token, err := s.get(KeyToken)
	if err != nil {
		return nil, err
	}
	password, err := s.get(KeyPassword)
	if err != nil {
		return nil, err
	}
	rawUser, err := s.get(KeyUser)
	if err != nil {
		return nil, err
	}
	if token == "" || password == "" || rawUser == "" {
		return nil, nil
	}

	var user models.UserIdentity
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.log.Warn("stored user record is unreadable, ignoring session", zap.Error(err))
		return nil, nil
	}
	return &models.Credentials{Token: token, Password: password, User: user}, nil
}

// Clear removes every part. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	var errsList []error
	for _, key := range []string{KeyToken, KeyPassword, KeyUser} {
		if err := s.medium.Remove(key); err != nil {
			errsList = append(errsList, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errsList...)
}

func (s *Store) get(key string) (string, error) {
	v, ok, err := s.medium.Get(key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}
