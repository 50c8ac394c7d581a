package handlers

import (
	"net/http"

	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/gin-gonic/gin"
)

type SettlementHandler struct {
	settlementService SettlementServiceInterface
}

func NewSettlementHandler(settlementService SettlementServiceInterface) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

// GetBalancesHandler returns every entity's net balance.
// GET /v1/events/:id/balances
func (h *SettlementHandler) GetBalancesHandler(c *gin.Context) {
	eventID := c.Param("id")

	balances, err := h.settlementService.CalculateEntityBalances(c.Request.Context(), eventID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"eventId": eventID, "balances": balances})
}

// GenerateSettlementHandler builds a fresh plan and opens review.
// POST /v1/events/:id/settlements/generate
func (h *SettlementHandler) GenerateSettlementHandler(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	plan, err := h.settlementService.GenerateSettlement(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// RegenerateSettlementHandler rebuilds a stale plan, keeping unaffected approvals.
// POST /v1/events/:id/settlements/regenerate
func (h *SettlementHandler) RegenerateSettlementHandler(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	plan, err := h.settlementService.RegenerateSettlement(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// ApproveSettlementReviewHandler records the caller's approval.
// POST /v1/events/:id/settlements/approve
func (h *SettlementHandler) ApproveSettlementReviewHandler(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	result, err := h.settlementService.ApproveSettlementReview(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListSettlementsHandler
// GET /v1/events/:id/settlements
func (h *SettlementHandler) ListSettlementsHandler(c *gin.Context) {
	eventID := c.Param("id")

	settlements, err := h.settlementService.GetEventSettlements(c.Request.Context(), eventID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"eventId": eventID, "settlements": settlements, "total": len(settlements)})
}

// GetPendingTotalHandler sums the amounts still to be paid.
// GET /v1/events/:id/settlements/pending-total
func (h *SettlementHandler) GetPendingTotalHandler(c *gin.Context) {
	eventID := c.Param("id")

	total, err := h.settlementService.GetPendingSettlementTotal(c.Request.Context(), eventID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"eventId": eventID, "pendingTotal": total})
}

// PreviewSplitsHandler computes the per-entity shares of an amount without saving anything.
// POST /v1/splits/preview
func (h *SettlementHandler) PreviewSplitsHandler(c *gin.Context) {
	var req types.SplitPreviewRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	splits, err := h.settlementService.PreviewSplits(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"splits": splits})
}
