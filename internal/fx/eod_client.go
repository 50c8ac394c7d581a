package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when the EOD endpoint or key is missing.
var ErrNotConfigured = errors.New("EOD rates API is not configured")

// EODClient fetches end-of-day exchange rates from an HTTP rates API.
//
// The API is called as GET {apiURL}?base=USD&symbols=EUR with an x-api-key
// header and answers {"base":"USD","date":"2026-10-15","rates":{"EUR":0.92}}.
type EODClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// ClientOption is a function that configures the client
type ClientOption func(*EODClient)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *EODClient) {
		c.httpClient = client
	}
}

// NewEODClient creates a new rates client
func NewEODClient(apiURL, apiKey string, timeout time.Duration, opts ...ClientOption) *EODClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &EODClient{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type eodResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
	Error string                     `json:"error,omitempty"`
}

// Rate returns the latest end-of-day rate converting one unit of from into to.
func (c *EODClient) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if c.apiURL == "" || c.apiKey == "" {
		return decimal.Zero, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("base", from)
	q.Set("symbols", to)
	endpoint := c.apiURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + q.Encode()
	} else {
		endpoint += "?" + q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response: %w", err)
	}

	var rates eodResponse
	decodeErr := json.Unmarshal(body, &rates)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && rates.Error != "" {
			return decimal.Zero, fmt.Errorf("rates request failed with status %d: %s", resp.StatusCode, rates.Error)
		}
		return decimal.Zero, fmt.Errorf("rates request failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return decimal.Zero, fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	rate, ok := rates.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("rates response has no %s rate", to)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("rates response has non-positive %s rate %s", to, rate)
	}
	return rate, nil
}
