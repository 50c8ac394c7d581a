package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
)

var errMissingCredentials = errors.New("payment gateway credentials are not configured")

// HTTPGateway creates checkout sessions through the provider HTTP API.
type HTTPGateway struct {
	apiURL     string
	apiKey     string
	returnURL  string
	httpClient *http.Client
}

// GatewayOption configures the HTTP gateway.
type GatewayOption func(*HTTPGateway)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		g.httpClient = client
	}
}

// WithReturnURL sets where providers redirect the payer after checkout.
func WithReturnURL(url string) GatewayOption {
	return func(g *HTTPGateway) {
		g.returnURL = url
	}
}

func NewHTTPGateway(apiURL, apiKey string, timeout time.Duration, opts ...GatewayOption) *HTTPGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	g := &HTTPGateway{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type checkoutRequest struct {
	Provider    string `json:"provider"`
	Reference   string `json:"reference"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl,omitempty"`
}

type checkoutResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkoutUrl"`
	Error       string `json:"error,omitempty"`
}

// StartPayment posts a checkout session. Failures are ProviderError AppErrors.
func (g *HTTPGateway) StartPayment(ctx context.Context, provider string, req PaymentRequest, opts StartOptions) (*PaymentSession, error) {
	if g.apiURL == "" || g.apiKey == "" {
		return nil, apperrors.ProviderFailed(provider, errMissingCredentials)
	}

	body, err := json.Marshal(checkoutRequest{
		Provider:    provider,
		Reference:   req.SettlementID,
		AmountMinor: int64(req.Amount),
		Currency:    req.Currency,
		Description: req.Description,
		ReturnURL:   g.returnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("Idempotency-Key", req.SettlementID)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.ProviderFailed(provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.ProviderFailed(provider, err)
	}

	var session checkoutResponse
	decodeErr := json.Unmarshal(raw, &session)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("checkout request failed with status %d", resp.StatusCode)
		if decodeErr == nil && session.Error != "" {
			msg += ": " + session.Error
		}
		return nil, apperrors.ProviderFailed(provider, errors.New(msg))
	}
	if decodeErr != nil {
		return nil, apperrors.ProviderFailed(provider, fmt.Errorf("failed to decode response: %w", decodeErr))
	}
	if session.ID == "" {
		return nil, apperrors.ProviderFailed(provider, errors.New("checkout response has no session id"))
	}

	return &PaymentSession{
		Provider:          provider,
		ProviderPaymentID: session.ID,
		CheckoutURL:       session.CheckoutURL,
	}, nil
}
