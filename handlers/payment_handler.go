package handlers

import (
	"context"
	"net/http"

	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService PaymentServiceInterface
}

func NewPaymentHandler(paymentService PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type settlementAction func(ctx context.Context, settlementID, userID string) (*types.Settlement, error)

// run resolves the caller and the settlement ID, then renders the updated row.
func (h *PaymentHandler) run(c *gin.Context, action settlementAction) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	settlement, err := action(c.Request.Context(), c.Param("settlementId"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, settlement)
}

// InitiatePaymentHandler starts a checkout session for the payer.
// POST /v1/settlements/:settlementId/initiate
func (h *PaymentHandler) InitiatePaymentHandler(c *gin.Context) {
	var opts types.InitiateOptions
	if !bindOptionalJSON(c, &opts) {
		return
	}
	h.run(c, func(ctx context.Context, settlementID, userID string) (*types.Settlement, error) {
		return h.paymentService.InitiatePayment(ctx, settlementID, userID, opts)
	})
}

// RetryPaymentHandler
// POST /v1/settlements/:settlementId/retry
func (h *PaymentHandler) RetryPaymentHandler(c *gin.Context) {
	var opts types.InitiateOptions
	if !bindOptionalJSON(c, &opts) {
		return
	}
	h.run(c, func(ctx context.Context, settlementID, userID string) (*types.Settlement, error) {
		return h.paymentService.RetryPayment(ctx, settlementID, userID, opts)
	})
}

// ApprovePaymentHandler lets the payee confirm an initiated payment.
// POST /v1/settlements/:settlementId/approve
func (h *PaymentHandler) ApprovePaymentHandler(c *gin.Context) {
	h.run(c, h.paymentService.ApprovePayment)
}

// RejectPaymentHandler
// POST /v1/settlements/:settlementId/reject
func (h *PaymentHandler) RejectPaymentHandler(c *gin.Context) {
	var req types.RejectPaymentRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, settlementID, userID string) (*types.Settlement, error) {
		return h.paymentService.RejectPayment(ctx, settlementID, userID, req.Reason)
	})
}

// MarkPaidHandler records a payment settled outside the gateway.
// POST /v1/settlements/:settlementId/mark-paid
func (h *PaymentHandler) MarkPaidHandler(c *gin.Context) {
	h.run(c, h.paymentService.MarkPaidByPayee)
}
