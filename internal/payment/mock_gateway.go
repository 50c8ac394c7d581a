package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockGateway simulates a provider without moving money.
type MockGateway struct {
	mu       sync.Mutex
	requests []PaymentRequest
	err      error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// FailWith makes every following StartPayment return err. Pass nil to recover.
func (g *MockGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Requests returns the requests received so far.
func (g *MockGateway) Requests() []PaymentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PaymentRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

func (g *MockGateway) StartPayment(ctx context.Context, provider string, req PaymentRequest, opts StartOptions) (*PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}

	paymentID := "mock_" + uuid.NewString()
	return &PaymentSession{
		Provider:          provider,
		ProviderPaymentID: paymentID,
		CheckoutURL:       fmt.Sprintf("https://checkout.mock.local/%s/%s", provider, paymentID),
	}, nil
}
