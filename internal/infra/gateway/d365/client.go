// Package d365 is a thin client for the Dynamics 365 F&O OData surface this
// bridge depends on: journal header/line creation, the mapping lookup
// entities and the dimension format query.
package d365

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nordicfin/relion-bridge/pkg/logger"
)

const (
	requestTimeout = 30 * time.Second
	maxRetries     = 3
)

// TokenProvider supplies a bearer token per request. Token acquisition and
// caching live outside this client.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken wraps a fixed token in a TokenProvider.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// Client is an HTTP client for the D365 F&O OData API
type Client struct {
	baseURL      string
	token        TokenProvider
	httpClient   *http.Client
	retryBackoff time.Duration
	logger       *logger.Logger
}

// NewClient creates a new D365 OData client
func NewClient(baseURL string, token TokenProvider, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		retryBackoff: time.Second,
		logger:       log.WithField("component", "d365"),
	}
}

// SetBaseURL overrides the base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// doRequest performs an authenticated OData request with throttling retry.
// It retries up to maxRetries times with exponential backoff (1s, 2s, 4s) on
// 429 responses, which D365 emits under resource-based throttling.
func (c *Client) doRequest(ctx context.Context, method, entityPath string, params url.Values, payload interface{}) ([]byte, error) {
	reqURL := c.baseURL + "/data/" + entityPath
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
	}

	backoff := c.retryBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		c.logger.Debug("OData request", "method", method, "entity", entityPath, "attempt", attempt)
		attemptStart := time.Now()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.logger.Debug("OData response", "status_code", resp.StatusCode, "duration_ms", time.Since(attemptStart).Milliseconds())
			return respBody, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetries {
				c.logger.Error("throttling retries exhausted", "attempts", maxRetries+1)
				return nil, fmt.Errorf("D365 throttled request after %d attempts", maxRetries+1)
			}
			c.logger.Warn("throttled, retrying", "attempt", attempt, "backoff_ms", backoff.Milliseconds())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				continue
			}
		}

		c.logger.Error("OData error", "status_code", resp.StatusCode, "entity", entityPath)
		return nil, fmt.Errorf("D365 OData error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	return nil, fmt.Errorf("request retries exhausted")
}

// queryValue runs a GET against an entity set and decodes the OData value
// envelope.
func (c *Client) queryValue(ctx context.Context, entityPath, filter string, dest interface{}) error {
	params := url.Values{}
	if filter != "" {
		params.Set("$filter", filter)
	}

	body, err := c.doRequest(ctx, http.MethodGet, entityPath, params, nil)
	if err != nil {
		return err
	}

	envelope := struct {
		Value json.RawMessage `json:"value"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse OData envelope: %w", err)
	}

	if err := json.Unmarshal(envelope.Value, dest); err != nil {
		return fmt.Errorf("failed to parse OData value: %w", err)
	}
	return nil
}

// escapeODataString escapes a literal for use inside an OData $filter.
func escapeODataString(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' {
			out = append(out, '\'')
		}
		out = append(out, r)
	}
	return string(out)
}
