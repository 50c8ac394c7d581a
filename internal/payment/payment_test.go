package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/config"
	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func testRequest() PaymentRequest {
	return PaymentRequest{
		SettlementID: "set-1",
		Amount:       5000,
		Currency:     "USD",
		Description:  "Settlement for Trip to Lisbon",
	}
}

func TestHTTPGateway_StartPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("successful checkout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/checkout/sessions", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
			assert.Equal(t, "set-1", r.Header.Get("Idempotency-Key"))

			var body checkoutRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "stripe", body.Provider)
			assert.Equal(t, "set-1", body.Reference)
			assert.Equal(t, int64(5000), body.AmountMinor)
			assert.Equal(t, "USD", body.Currency)
			assert.Equal(t, "https://app.example.com/return", body.ReturnURL)

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(checkoutResponse{ID: "cs_123", CheckoutURL: "https://pay.example.com/cs_123"})
		}))
		defer server.Close()

		gw := NewHTTPGateway(server.URL+"/", "test-key", time.Second, WithReturnURL("https://app.example.com/return"))
		session, err := gw.StartPayment(ctx, "stripe", testRequest(), StartOptions{})
		require.NoError(t, err)
		assert.Equal(t, "stripe", session.Provider)
		assert.Equal(t, "cs_123", session.ProviderPaymentID)
		assert.Equal(t, "https://pay.example.com/cs_123", session.CheckoutURL)
	})

	t.Run("non-2xx is a provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"currency not supported"}`))
		}))
		defer server.Close()

		gw := NewHTTPGateway(server.URL, "test-key", time.Second)
		_, err := gw.StartPayment(ctx, "paypay", testRequest(), StartOptions{})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ProviderError))
		assert.Contains(t, err.Error(), "currency not supported")
	})

	t.Run("missing session id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		gw := NewHTTPGateway(server.URL, "test-key", time.Second)
		_, err := gw.StartPayment(ctx, "stripe", testRequest(), StartOptions{})
		assert.True(t, apperrors.IsType(err, apperrors.ProviderError))
	})

	t.Run("missing credentials", func(t *testing.T) {
		gw := NewHTTPGateway("https://payments.example.com", "", time.Second)
		_, err := gw.StartPayment(ctx, "stripe", testRequest(), StartOptions{})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ProviderError))
		assert.True(t, errors.Is(err, errMissingCredentials))
	})
}

func TestMockGateway(t *testing.T) {
	gw := NewMockGateway()
	session, err := gw.StartPayment(context.Background(), "stripe", testRequest(), StartOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session.ProviderPaymentID, "mock_"))
	assert.Contains(t, session.CheckoutURL, "/stripe/")
	assert.Len(t, gw.Requests(), 1)

	gw.FailWith(errors.New("declined"))
	_, err = gw.StartPayment(context.Background(), "stripe", testRequest(), StartOptions{})
	assert.EqualError(t, err, "declined")

	gw.FailWith(nil)
	_, err = gw.StartPayment(context.Background(), "stripe", testRequest(), StartOptions{})
	assert.NoError(t, err)
}

func TestRouter_AllowsRealGateway(t *testing.T) {
	enabled := config.FeatureFlags{EnableRealPaymentGateway: true}
	testers := config.PaymentConfig{AllowNonProdRealGateway: true, InternalTesters: []string{"tester"}}

	tests := []struct {
		name     string
		env      config.Environment
		cfg      config.PaymentConfig
		flags    config.FeatureFlags
		opts     StartOptions
		expected bool
	}{
		{"not requested", config.EnvProduction, config.PaymentConfig{}, enabled, StartOptions{UserID: "u1"}, false},
		{"production", config.EnvProduction, config.PaymentConfig{}, enabled, StartOptions{UseRealGateway: true, UserID: "u1"}, true},
		{"production with flag off", config.EnvProduction, config.PaymentConfig{}, config.FeatureFlags{}, StartOptions{UseRealGateway: true}, false},
		{"development without opt-in", config.EnvDevelopment, config.PaymentConfig{InternalTesters: []string{"tester"}}, enabled, StartOptions{UseRealGateway: true, UserID: "tester"}, false},
		{"development internal tester", config.EnvDevelopment, testers, enabled, StartOptions{UseRealGateway: true, UserID: "tester"}, true},
		{"staging other user", config.EnvStaging, testers, enabled, StartOptions{UseRealGateway: true, UserID: "u1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(NewMockGateway(), NewMockGateway(), tt.env, tt.cfg, tt.flags)
			assert.Equal(t, tt.expected, r.AllowsRealGateway(tt.opts))
		})
	}
}

func TestRouter_StartPayment(t *testing.T) {
	real := NewMockGateway()
	mock := NewMockGateway()
	r := NewRouter(real, mock, config.EnvProduction, config.PaymentConfig{}, config.FeatureFlags{EnableRealPaymentGateway: true})

	_, err := r.StartPayment(context.Background(), "stripe", testRequest(), StartOptions{UseRealGateway: true})
	require.NoError(t, err)
	_, err = r.StartPayment(context.Background(), "stripe", testRequest(), StartOptions{})
	require.NoError(t, err)

	assert.Len(t, real.Requests(), 1)
	assert.Len(t, mock.Requests(), 1)

	noReal := NewRouter(nil, mock, config.EnvProduction, config.PaymentConfig{}, config.FeatureFlags{EnableRealPaymentGateway: true})
	_, err = noReal.StartPayment(context.Background(), "stripe", testRequest(), StartOptions{UseRealGateway: true})
	require.NoError(t, err)
	assert.Len(t, mock.Requests(), 2)
}
