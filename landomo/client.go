// Package landomo is the client for the Landomo core ingestion service.
package landomo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"zigbang-scraper/config"
	"zigbang-scraper/models"
	"zigbang-scraper/utils"
)

const ingestPath = "/properties/ingest"

// Client posts ingestion envelopes to the core service. It performs no
// retries; the caller decides whether a failed record aborts anything.
type Client struct {
	baseURL    string
	apiKey     string
	logger     *utils.Logger
	limiter    *utils.RateLimiter
	httpClient *http.Client
}

// New creates a Client from the environment configuration. The limiter is
// the run-wide one, so ingestion calls pace with portal calls.
func New(cfg *config.Config, logger *utils.Logger, limiter *utils.RateLimiter) *Client {
	return &Client{
		baseURL: cfg.APIBaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
		limiter: limiter,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
	}
}

// Send posts one envelope. Any transport error or non-2xx response is a
// failure, logged with the portal record id, status and response body.
func (c *Client) Send(ctx context.Context, env *models.IngestionEnvelope) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("landomo: rate limit wait: %w", err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("landomo: encode envelope %s: %w", env.PortalID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ingestPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("landomo: build request for %s: %w", env.PortalID, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("[landomo] Failed to send property %s: %v", env.PortalID, err)
		return fmt.Errorf("landomo: send %s: %w", env.PortalID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("[landomo] Failed to send property %s: status %s, response: %s",
			env.PortalID, resp.Status, string(respBody))
		return fmt.Errorf("landomo: send %s: unexpected status %s", env.PortalID, resp.Status)
	}

	c.logger.Debug("[landomo] Sent property %s", env.PortalID)
	return nil
}
