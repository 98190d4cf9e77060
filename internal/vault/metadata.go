package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// metadataAAD binds the metadata blob so it cannot be swapped with an object.
const metadataAAD = "\x00metadata"

// GetMetadata returns the account metadata map, or nil when none was stored.
func (c *Client) GetMetadata(ctx context.Context) (map[string]string, error) {
	token, aead, err := c.session()
	if err != nil {
		return nil, err
	}
	var resp blob
	if err := c.do(ctx, http.MethodGet, "/api/metadata", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	plain, err := open(aead, metadataAAD, resp.Data)
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(plain, &m); err != nil {
		return nil, fmt.Errorf("get metadata: decode: %w", err)
	}
	return m, nil
}

// UpdateMetadata replaces the account metadata map.
func (c *Client) UpdateMetadata(ctx context.Context, m map[string]string) error {
	token, aead, err := c.session()
	if err != nil {
		return err
	}
	plain, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("update metadata: encode: %w", err)
	}
	sealed, err := seal(aead, metadataAAD, plain)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	if err := c.do(ctx, http.MethodPut, "/api/metadata", token, blob{Data: sealed}, nil); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}
