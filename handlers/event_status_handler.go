package handlers

import (
	"net/http"

	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/gin-gonic/gin"
)

type EventStatusHandler struct {
	statusCoordinator StatusCoordinatorInterface
}

func NewEventStatusHandler(statusCoordinator StatusCoordinatorInterface) *EventStatusHandler {
	return &EventStatusHandler{statusCoordinator: statusCoordinator}
}

type LockStatusResponse struct {
	EventID    string           `json:"eventId"`
	Locked     bool             `json:"locked"`
	LockStatus types.LockStatus `json:"lockStatus,omitempty"`
}

// GetLockStatusHandler
// GET /v1/events/:id/lock
func (h *EventStatusHandler) GetLockStatusHandler(c *gin.Context) {
	eventID := c.Param("id")

	lock, err := h.statusCoordinator.GetEventLockStatus(c.Request.Context(), eventID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, LockStatusResponse{
		EventID:    eventID,
		Locked:     lock != types.LockStatusNone,
		LockStatus: lock,
	})
}

// EditableHandler answers 204 when expenses and groups may change, 403 otherwise.
// GET /v1/events/:id/editable
func (h *EventStatusHandler) EditableHandler(c *gin.Context) {
	if err := h.statusCoordinator.RequireEditableEvent(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkStaleHandler is called by the expense and group services after an edit.
// POST /v1/events/:id/stale
func (h *EventStatusHandler) MarkStaleHandler(c *gin.Context) {
	if err := h.statusCoordinator.MarkStaleIfInReview(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CloseEventHandler
// POST /v1/events/:id/close
func (h *EventStatusHandler) CloseEventHandler(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	event, err := h.statusCoordinator.CloseEvent(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, event)
}
