package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-ingest/internal/httpclient"
	"github.com/Checker-Finance/trade-ingest/internal/rate"
)

// Client wraps low-level HTTP communication with the upstream trade feed.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
	apiKey  string
}

// NewClient constructs a feed HTTP client.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, baseURL, apiKey string) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	exec := httpclient.New(logger, rateMgr, httpClient, 2, "feed", func(status int, body []byte) error {
		var errResp ErrorResponse
		_ = json.Unmarshal(body, &errResp)

		logger.Warn("feed.client_error",
			zap.Int("status", status),
			zap.String("error", errResp.Error),
			zap.String("message", errResp.Message))

		errMsg := errResp.Message
		if errMsg == "" {
			errMsg = errResp.Error
		}
		if errMsg == "" {
			errMsg = string(body)
		}
		return fmt.Errorf("feed returned %d: %s", status, errMsg)
	})
	return &Client{
		logger:  logger,
		exec:    exec,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NextTrade fetches the next available trade from the upstream feed.
// A 204 or empty body means the upstream has nothing new; that is
// reported as (nil, nil), not an error.
// GET /api/trades/next
func (c *Client) NextTrade(ctx context.Context) (*TradePayload, error) {
	var p TradePayload
	if err := c.getJSON(ctx, "/api/trades/next", &p); err != nil {
		return nil, err
	}
	if p.ID == "" && p.Symbol == "" {
		return nil, nil
	}
	return &p, nil
}

// rateLimitKey isolates the token bucket per feed endpoint.
func (c *Client) rateLimitKey() string {
	return "feed_api:" + c.baseURL
}

// getJSON performs an authenticated GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := fmt.Sprintf("%s%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	setHeaders(req, c.apiKey)

	return c.exec.DoJSON(ctx, req, c.rateLimitKey(), out)
}

// setHeaders applies standard headers for feed API requests.
func setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", apiKey)
}
