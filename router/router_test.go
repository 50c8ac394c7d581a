package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/config"
	"github.com/NomadCrew/nomad-crew-settlement/handlers"
	"github.com/NomadCrew/nomad-crew-settlement/internal/fx"
	"github.com/NomadCrew/nomad-crew-settlement/internal/payment"
	"github.com/NomadCrew/nomad-crew-settlement/internal/store/memstore"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/middleware"
	settlementSvc "github.com/NomadCrew/nomad-crew-settlement/models/settlement/service"
	"github.com/NomadCrew/nomad-crew-settlement/services"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret-key-with-enough-length"

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) (*gin.Engine, *memstore.Store) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Environment:    config.EnvDevelopment,
			AllowedOrigins: []string{"*"},
			JwtSecretKey:   testSecret,
		},
		Payment: config.PaymentConfig{DefaultProvider: "stripe"},
	}
	validator, err := middleware.NewJWTValidator(&cfg.Server)
	require.NoError(t, err)

	st := memstore.New()
	provider := fx.NewProvider(&cfg.Payment)
	gateway := payment.NewRouter(nil, payment.NewMockGateway(), cfg.Server.Environment, cfg.Payment, config.FeatureFlags{})

	r := SetupRouter(Dependencies{
		Config:             cfg,
		JWTValidator:       validator,
		SettlementHandler:  handlers.NewSettlementHandler(settlementSvc.NewSettlementService(st, provider, nil, nil)),
		PaymentHandler:     handlers.NewPaymentHandler(settlementSvc.NewPaymentService(st, provider, gateway, nil, nil)),
		EventStatusHandler: handlers.NewEventStatusHandler(settlementSvc.NewStatusCoordinator(st, nil, nil)),
		HealthHandler:      handlers.NewHealthHandler(services.NewHealthService(nil, nil, "test")),
	})
	return r, st
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r, _ := setupTestRouter(t)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health/liveness", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health/readiness", "").Code)

	w := serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_RequiresAuth(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := serve(r, http.MethodGet, "/v1/events/event-1/lock", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_SettlementFlow(t *testing.T) {
	r, st := setupTestRouter(t)

	st.PutEvent(&types.Event{ID: "event-1", Name: "Trip", Currency: "USD", Admins: []string{"U1"}})
	st.AddParticipant("event-1", &types.Participant{UserID: "U1", DisplayName: "Alice", Status: types.ParticipantStatusAccepted})
	st.AddParticipant("event-1", &types.Participant{UserID: "U2", DisplayName: "Bob", Status: types.ParticipantStatusAccepted})
	st.AddExpense(&types.Expense{
		ID: "e1", EventID: "event-1", PaidBy: "U1", Amount: 10000, Currency: "USD",
		SplitType: types.SplitTypeEqual,
		Splits: []types.Split{
			{EntityType: types.EntityTypeUser, EntityID: "U1", Amount: 5000},
			{EntityType: types.EntityTypeUser, EntityID: "U2", Amount: 5000},
		},
	})

	w := serve(r, http.MethodGet, "/v1/events/event-1/editable", bearer(t, "U2"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(r, http.MethodPost, "/v1/events/event-1/settlements/generate", bearer(t, "U2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodPost, "/v1/events/event-1/settlements/generate", bearer(t, "U1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(r, http.MethodGet, "/v1/events/event-1/settlements/pending-total", bearer(t, "U1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"eventId":"event-1","pendingTotal":50.00}`, w.Body.String())

	w = serve(r, http.MethodPost, "/v1/events/event-1/settlements/approve", bearer(t, "U1"))
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(r, http.MethodPost, "/v1/events/event-1/settlements/approve", bearer(t, "U2"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/v1/events/event-1/lock", bearer(t, "U1"))
	assert.JSONEq(t, `{"eventId":"event-1","locked":true,"lockStatus":"payment"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/v1/events/event-1/editable", bearer(t, "U1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
