package agentapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nebula-shopify-bridge/internal/ports"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const initPath = "/agent-api/auth/shopify/init"

// Client talks to the agent-commerce API. The init hand-off is fire-and-
// forget, so the transport is configured with zero retries; a failed
// notification is logged by the caller and the shop re-registers on the next
// manual setup run.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  zerolog.Logger
}

// NewClient creates a client for the agent API at baseURL (no trailing slash).
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: baseURL,
		http:    rc,
		logger:  logger,
	}
}

// Notify POSTs the shop's credentials to the init endpoint. Non-2xx and
// network failures are returned as errors; the caller discards them after
// logging, never aborting the install flow.
func (c *Client) Notify(ctx context.Context, payload ports.InitPayload) error {
	if c.baseURL == "" {
		return fmt.Errorf("agent API URL not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal init payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+initPath, body)
	if err != nil {
		return fmt.Errorf("failed to build init request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call agent API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agent API init returned %d: %s", resp.StatusCode, string(respBody))
	}

	var initResp struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&initResp); err == nil && initResp.Message != "" {
		c.logger.Info().
			Str("shop", payload.Shop).
			Str("message", initResp.Message).
			Msg("Agent API init acknowledged")
	}

	return nil
}
