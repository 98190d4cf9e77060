package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atinyakov/SecureNotes/internal/models"
)

type blob struct {
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// objectEndpoint validates path and escapes each segment.
func objectEndpoint(path string) (string, error) {
	if path == "" || strings.HasPrefix(path, "/") {
		return "", ErrInvalidPath
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" || s == "." || s == ".." {
			return "", ErrInvalidPath
		}
		segments[i] = url.PathEscape(s)
	}
	return "/api/objects/" + strings.Join(segments, "/"), nil
}

// List returns every object stored for the account.
func (c *Client) List(ctx context.Context) ([]models.ObjectInfo, error) {
	token, _, err := c.session()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Objects []models.ObjectInfo `json:"objects"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/objects", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return resp.Objects, nil
}

// Get fetches, decrypts and JSON-decodes the object at path into v.
func (c *Client) Get(ctx context.Context, path string, v any) error {
	token, aead, err := c.session()
	if err != nil {
		return err
	}
	endpoint, err := objectEndpoint(path)
	if err != nil {
		return err
	}

	var resp blob
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &resp); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	plain, err := open(aead, path, resp.Data)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("get %s: decode: %w", path, err)
	}
	return nil
}

// Put JSON-encodes v, encrypts it and stores it at path.
func (c *Client) Put(ctx context.Context, path string, v any) error {
	token, aead, err := c.session()
	if err != nil {
		return err
	}
	endpoint, err := objectEndpoint(path)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("put %s: encode: %w", path, err)
	}
	sealed, err := seal(aead, path, plain)
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	if err := c.do(ctx, http.MethodPut, endpoint, token, blob{Data: sealed}, nil); err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

// Delete removes the object at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	token, _, err := c.session()
	if err != nil {
		return err
	}
	endpoint, err := objectEndpoint(path)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, endpoint, token, nil, nil); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
