package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store kinds for the credential medium.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Client holds the notes CLI configuration. Values come from environment
// variables with the NOTES_ prefix, e.g. NOTES_APP_TOKEN.
type Client struct {
	AppToken    string        `envconfig:"APP_TOKEN"    required:"true"`
	RedirectURI string        `envconfig:"REDIRECT_URI" required:"true"`
	ServerURL   string        `envconfig:"SERVER_URL"   default:"https://api.syncvault.dev"`
	CAFile      string        `envconfig:"CA_FILE"`
	StateDir    string        `envconfig:"STATE_DIR"`
	Store       string        `envconfig:"STORE"        default:"file"`
	LogLevel    string        `envconfig:"LOG_LEVEL"    default:"warn"`
	Timeout     time.Duration `envconfig:"TIMEOUT"      default:"10s"`
	LoginHint   string        `envconfig:"LOGIN_HINT"`
	FetchLimit  int           `envconfig:"FETCH_LIMIT"  default:"8"`
	SaveTimeout time.Duration `envconfig:"SAVE_TIMEOUT" default:"30s"`
}

// LoadClient reads the client configuration from the environment.
func LoadClient() (*Client, error) {
	var c Client
	if err := envconfig.Process("NOTES", &c); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := c.resolve(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Client) resolve() error {
	if c.AppToken == "" || c.RedirectURI == "" {
		return fmt.Errorf("NOTES_APP_TOKEN and NOTES_REDIRECT_URI are required")
	}
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unsupported NOTES_STORE: %s", c.Store)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("NOTES_TIMEOUT must be positive")
	}
	if c.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("locate config dir: %w", err)
		}
		c.StateDir = filepath.Join(dir, "securenotes")
	}
	return nil
}

// SessionPath is where the credential medium lives.
func (c *Client) SessionPath() string {
	if c.Store == StoreSQLite {
		return filepath.Join(c.StateDir, "session.db")
	}
	return filepath.Join(c.StateDir, "session.json")
}

// RedirectPath is where the last authorization redirect is recorded.
func (c *Client) RedirectPath() string {
	return filepath.Join(c.StateDir, "redirect")
}
