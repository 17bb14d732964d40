// Package entitlement adapts trigger.Entitlement to an HTTP collaborator
// queried for an organization's credit balance.
package entitlement

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/trigger"
	"github.com/nneven/runtrigger/pkg/config"
)

// Client implements trigger.Entitlement over HTTP via resty.
type Client struct {
	http *resty.Client
}

// New builds a Client from cfg: base URL, bearer API key, and timeout.
func New(cfg *config.EntitlementConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2)
	if cfg.APIKey.Value() != "" {
		client = client.SetHeader("Authorization", "Bearer "+cfg.APIKey.Value())
	}
	return &Client{http: client}
}

type entitlementResponse struct {
	HasAccess bool `json:"has_access"`
}

// Get implements trigger.Entitlement.
func (c *Client) Get(ctx context.Context, organizationID core.ID) (*trigger.EntitlementState, error) {
	var body entitlementResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("organizationId", organizationID.String()).
		SetResult(&body).
		Get("/organizations/{organizationId}/entitlement")
	if err != nil {
		return nil, fmt.Errorf("entitlement: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("entitlement: unexpected status %d", resp.StatusCode())
	}
	return &trigger.EntitlementState{HasAccess: body.HasAccess}, nil
}
