// Package payment starts checkout sessions with payment providers.
package payment

import (
	"context"

	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
)

// PaymentRequest is the charge a payer is asked to make.
type PaymentRequest struct {
	SettlementID string              `json:"settlementId"`
	Amount       valueobjects.Amount `json:"amount"`
	Currency     string              `json:"currency"`
	Description  string              `json:"description"`
}

// StartOptions carries caller preferences for gateway selection.
type StartOptions struct {
	UseRealGateway bool
	UserID         string
}

// PaymentSession is what a provider returns for a started payment.
type PaymentSession struct {
	Provider          string `json:"provider"`
	ProviderPaymentID string `json:"providerPaymentId"`
	CheckoutURL       string `json:"checkoutUrl,omitempty"`
}

// Gateway starts payments with a named provider.
type Gateway interface {
	StartPayment(ctx context.Context, provider string, req PaymentRequest, opts StartOptions) (*PaymentSession, error)
}
