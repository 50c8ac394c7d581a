package handlers

import (
	"net/http"
	"testing"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func sampleSettlement(status types.SettlementStatus) *types.Settlement {
	s := samplePlan().Settlements[0]
	s.Status = status
	return s
}

func TestPaymentHandler_Initiate(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		wantOpts   types.InitiateOptions
		err        error
		wantStatus int
	}{
		{name: "no body uses defaults", wantStatus: http.StatusOK},
		{name: "real gateway requested", body: `{"useRealGateway": true}`, wantOpts: types.InitiateOptions{UseRealGateway: true}, wantStatus: http.StatusOK},
		{name: "payer mismatch", err: apperrors.Forbidden("Only the payer can initiate this payment", ""), wantStatus: http.StatusForbidden},
		{name: "provider down", err: apperrors.ProviderFailed("stripe", assert.AnError), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPaymentService)
			h := NewPaymentHandler(svc)

			call := svc.On("InitiatePayment", mock.Anything, testSettlementID, testUserID, tt.wantOpts)
			if tt.err != nil {
				call.Return(nil, tt.err)
			} else {
				call.Return(sampleSettlement(types.SettlementStatusInitiated), nil)
			}

			r := buildRouter(http.MethodPost, "/v1/settlements/:settlementId/initiate", h.InitiatePaymentHandler, testUserID)
			w := doRequest(r, http.MethodPost, "/v1/settlements/"+testSettlementID+"/initiate", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.err == nil {
				assert.Equal(t, "initiated", decodeBody(t, w)["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestPaymentHandler_InitiateRejectsBadJSON(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc)

	r := buildRouter(http.MethodPost, "/v1/settlements/:settlementId/initiate", h.InitiatePaymentHandler, testUserID)
	w := doRequest(r, http.MethodPost, "/v1/settlements/"+testSettlementID+"/initiate", `{"useRealGateway": "yes"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentHandler_Retry(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc)
	retried := sampleSettlement(types.SettlementStatusInitiated)
	retried.RetryCount = 1
	svc.On("RetryPayment", mock.Anything, testSettlementID, testUserID, types.InitiateOptions{}).Return(retried, nil)

	r := buildRouter(http.MethodPost, "/v1/settlements/:settlementId/retry", h.RetryPaymentHandler, testUserID)
	w := doRequest(r, http.MethodPost, "/v1/settlements/"+testSettlementID+"/retry", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decodeBody(t, w)["retryCount"])
	svc.AssertExpectations(t)
}

func TestPaymentHandler_ApproveAndMarkPaid(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc)
	svc.On("ApprovePayment", mock.Anything, testSettlementID, testUserID).Return(sampleSettlement(types.SettlementStatusCompleted), nil)
	svc.On("MarkPaidByPayee", mock.Anything, testSettlementID, testUserID).
		Return(nil, apperrors.InvalidState("Payment already completed", ""))

	r := buildRouter(http.MethodPost, "/v1/settlements/:settlementId/approve", h.ApprovePaymentHandler, testUserID)
	w := doRequest(r, http.MethodPost, "/v1/settlements/"+testSettlementID+"/approve", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeBody(t, w)["status"])

	r = buildRouter(http.MethodPost, "/v1/settlements/:settlementId/mark-paid", h.MarkPaidHandler, testUserID)
	w = doRequest(r, http.MethodPost, "/v1/settlements/"+testSettlementID+"/mark-paid", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	svc.AssertExpectations(t)
}

func TestPaymentHandler_Reject(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		wantReason string
	}{
		{name: "with reason", body: types.RejectPaymentRequest{Reason: "wrong amount"}, wantReason: "wrong amount"},
		{name: "without body", wantReason: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPaymentService)
			h := NewPaymentHandler(svc)
			failed := sampleSettlement(types.SettlementStatusFailed)
			failed.FailureReason = tt.wantReason
			svc.On("RejectPayment", mock.Anything, testSettlementID, testUserID, tt.wantReason).Return(failed, nil)

			r := buildRouter(http.MethodPost, "/v1/settlements/:settlementId/reject", h.RejectPaymentHandler, testUserID)
			w := doRequest(r, http.MethodPost, "/v1/settlements/"+testSettlementID+"/reject", tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestPaymentHandler_RequiresUser(t *testing.T) {
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc)

	r := buildRouter(http.MethodPost, "/v1/settlements/:settlementId/approve", h.ApprovePaymentHandler, "")
	w := doRequest(r, http.MethodPost, "/v1/settlements/"+testSettlementID+"/approve", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "ApprovePayment", mock.Anything, mock.Anything, mock.Anything)
}
