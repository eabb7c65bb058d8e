// Package relionapi is a client for the Relion ledger source API. It covers
// the two calls the bridge makes upstream: fetching ledger entries for the
// business-event trigger and the excluded-account existence check.
package relionapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nordicfin/relion-bridge/internal/relion"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

const requestTimeout = 30 * time.Second

// Client is an HTTP client for the Relion API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Relion API client
func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: log.WithField("component", "relion"),
	}
}

// SetBaseURL overrides the base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// FetchLines fetches the ledger entries of a legal entity booked since the
// given timestamp, in the same envelope the file exports use.
func (c *Client) FetchLines(ctx context.Context, legalEntity string, since time.Time) ([]relion.LedgerLine, error) {
	params := url.Values{}
	params.Set("competenceUnit", legalEntity)
	params.Set("since", since.UTC().Format(time.RFC3339))

	body, err := c.get(ctx, "/api/v1/ledgerEntries", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger entries: %w", err)
	}

	lines, err := relion.ParsePayload(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger entries: %w", err)
	}
	return lines, nil
}

// ledgerAccountResponse is the existence-check response shape.
type ledgerAccountResponse struct {
	LedgerAccountNo string `json:"ledgerAccountNo"`
}

// LookupLedgerAccount checks whether a source entry still resolves to a
// ledger account on the Relion side. A 404 is a legitimate not-found.
func (c *Client) LookupLedgerAccount(ctx context.Context, entryNo int) (string, bool, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/v1/glAccounts/%d", entryNo), nil)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("ledger account lookup failed: %w", err)
	}

	var resp ledgerAccountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false, fmt.Errorf("failed to parse ledger account response: %w", err)
	}
	if resp.LedgerAccountNo == "" {
		return "", false, nil
	}
	return resp.LedgerAccountNo, true, nil
}

// statusError carries the HTTP status of a failed request so callers can
// distinguish not-found from infrastructure failures.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("Relion API error: status %d, body: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	c.logger.Debug("API request", "method", http.MethodGet, "url", reqURL)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("API error", "status_code", resp.StatusCode, "path", path)
		return nil, &statusError{status: resp.StatusCode, body: string(body)}
	}

	c.logger.Debug("API response", "status_code", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return body, nil
}
