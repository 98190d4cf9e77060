// Package vault is the client SDK for the remote encrypted key-value vault.
//
// Every object and the metadata blob are JSON-encoded and sealed with
// AES-256-GCM under a key derived from the user's encryption password before
// they leave the process; the server only ever sees ciphertext. The password
// itself is never sent anywhere.
//
// A Client starts unconfigured. ExchangeCode or Configure install the access
// token and the derived key; Clear removes both.
package vault

import (
	"bytes"
	"context"
	"crypto/cipher"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultServerURL is used when no server URL is configured.
const DefaultServerURL = "https://api.syncvault.dev"

// Client talks to the vault over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL     string
	appToken    string
	redirectURI string
	loginHint   string
	http        *http.Client
	log         *zap.Logger

	mu    sync.RWMutex
	token string
	aead  cipher.AEAD
}

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		c.http = hc
		return nil
	}
}

// WithTimeout sets the http.Client timeout. The value must be greater than zero.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithRootCAs trusts the PEM certificates in caFile for TLS connections to
// the vault, e.g. the CA produced by tools/certgen for the development server.
func WithRootCAs(caFile string) Option {
	return func(c *Client) error {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return fmt.Errorf("failed to read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return errors.New("failed to parse CA cert")
		}
		c.http.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    caPool,
				MinVersion: tls.VersionTLS12,
			},
		}
		return nil
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

// WithLoginHint adds login_hint to the authorization URL.
func WithLoginHint(username string) Option {
	return func(c *Client) error {
		c.loginHint = username
		return nil
	}
}

// New constructs a Client. appToken identifies the application to the vault
// and redirectURI is where the authorization server sends the user back;
// both are required. An empty serverURL means DefaultServerURL.
func New(serverURL, appToken, redirectURI string, opts ...Option) (*Client, error) {
	if appToken == "" {
		return nil, errors.New("app token is required")
	}
	if redirectURI == "" {
		return nil, errors.New("redirect URI is required")
	}
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	c := &Client{
		baseURL:     strings.TrimRight(serverURL, "/"),
		appToken:    appToken,
		redirectURI: redirectURI,
		http:        &http.Client{Timeout: 10 * time.Second},
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Configure installs the access token and derives the encryption key from
// password. It replaces any previous configuration.
func (c *Client) Configure(token, password string) error {
	if token == "" || password == "" {
		return errors.New("token and password are required")
	}
	aead, err := newAEAD(deriveKey(password, c.appToken))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.token = token
	c.aead = aead
	c.mu.Unlock()
	return nil
}

// Clear forgets the access token and the derived key.
func (c *Client) Clear() {
	c.mu.Lock()
	c.token = ""
	c.aead = nil
	c.mu.Unlock()
}

// Token returns the current access token, or "" when unconfigured.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Configured reports whether both a token and a key are installed.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != "" && c.aead != nil
}

// AuthURL returns the authorization URL the user must open to sign in.
func (c *Client) AuthURL() string {
	q := url.Values{}
	q.Set("client_id", c.appToken)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	if c.loginHint != "" {
		q.Set("login_hint", c.loginHint)
	}
	return c.baseURL + "/oauth/authorize?" + q.Encode()
}

// session returns the token and cipher for an authenticated call.
func (c *Client) session() (string, cipher.AEAD, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || c.aead == nil {
		return "", nil, ErrNotConfigured
	}
	return c.token, c.aead, nil
}

// do performs one JSON round trip. token is sent as a bearer credential when
// non-empty. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, endpoint, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	c.log.Debug("vault request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
