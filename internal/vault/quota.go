package vault

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atinyakov/SecureNotes/internal/models"
)

// GetQuota returns the current storage usage and limit.
func (c *Client) GetQuota(ctx context.Context) (models.Quota, error) {
	token, _, err := c.session()
	if err != nil {
		return models.Quota{}, err
	}
	var q models.Quota
	if err := c.do(ctx, http.MethodGet, "/api/quota", token, nil, &q); err != nil {
		return models.Quota{}, fmt.Errorf("get quota: %w", err)
	}
	return q, nil
}
