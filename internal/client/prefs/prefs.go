// Package prefs holds the account preferences kept in the vault metadata.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"
)

const (
	KeyTheme    = "theme"
	KeyTimezone = "timezone"
	KeyLanguage = "language"
)

// Keys lists the known preferences in display order.
var Keys = []string{KeyTheme, KeyTimezone, KeyLanguage}

var timezones = []string{
	"UTC",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"Europe/London",
	"Europe/Paris",
	"Asia/Tokyo",
	"Asia/Shanghai",
	"Australia/Sydney",
}

// Choices lists the accepted values of every known key.
var Choices = map[string][]string{
	KeyTheme:    {"light", "dark", "auto"},
	KeyTimezone: timezones,
	KeyLanguage: {"en", "es", "fr", "de", "ja", "ru"},
}

// Defaults are used for keys the metadata does not set.
var Defaults = map[string]string{
	KeyTheme:    "light",
	KeyTimezone: "UTC",
	KeyLanguage: "en",
}

var (
	ErrUnknownKey   = errors.New("unknown preference")
	ErrInvalidValue = errors.New("invalid preference value")
)

// MetadataStore reads and replaces the metadata map.
type MetadataStore interface {
	GetMetadata(ctx context.Context) (map[string]string, error)
	UpdateMetadata(ctx context.Context, m map[string]string) error
}

// Preferences is the local copy of the metadata map. Keys it does not know
// are carried along unchanged.
type Preferences struct {
	store MetadataStore
	log   *zap.Logger

	mu     sync.RWMutex
	values map[string]string
	saving bool
}

// New returns Preferences holding the defaults.
func New(store MetadataStore, log *zap.Logger) *Preferences {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preferences{store: store, log: log, values: maps.Clone(Defaults)}
}

// Load merges the stored metadata over the current values.
func (p *Preferences) Load(ctx context.Context) error {
	m, err := p.store.GetMetadata(ctx)
	if err != nil {
		p.log.Warn("failed to load preferences", zap.Error(err))
		return fmt.Errorf("load preferences: %w", err)
	}
	p.mu.Lock()
	maps.Copy(p.values, m)
	p.mu.Unlock()
	return nil
}

// Get returns the value of key.
func (p *Preferences) Get(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values[key]
}

// All returns a copy of every value, including unknown keys.
func (p *Preferences) All() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values)
}

// Saving reports whether a Set is sending the map.
func (p *Preferences) Saving() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.saving
}

// Validate checks that key is known and value is one of its choices.
func Validate(key, value string) error {
	choices, ok := Choices[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if !slices.Contains(choices, value) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	return nil
}

// Set changes key locally and then stores the whole map. If storing fails
// the local value stays and the error is returned.
func (p *Preferences) Set(ctx context.Context, key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	p.mu.Lock()
	p.values[key] = value
	snapshot := maps.Clone(p.values)
	p.saving = true
	p.mu.Unlock()

	err := p.store.UpdateMetadata(ctx, snapshot)

	p.mu.Lock()
	p.saving = false
	p.mu.Unlock()
	if err != nil {
		p.log.Warn("failed to save preferences", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
