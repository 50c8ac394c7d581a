package handlers

import (
	"net/http"
	"testing"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestEventStatusHandler_LockStatus(t *testing.T) {
	tests := []struct {
		lock       types.LockStatus
		wantLocked bool
	}{
		{lock: types.LockStatusNone, wantLocked: false},
		{lock: types.LockStatusPayment, wantLocked: true},
		{lock: types.LockStatusClosed, wantLocked: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.lock), func(t *testing.T) {
			svc := new(MockStatusCoordinator)
			h := NewEventStatusHandler(svc)
			svc.On("GetEventLockStatus", mock.Anything, testEventID).Return(tt.lock, nil)

			r := buildRouter(http.MethodGet, "/v1/events/:id/lock", h.GetLockStatusHandler, testUserID)
			w := doRequest(r, http.MethodGet, "/v1/events/"+testEventID+"/lock", nil)

			assert.Equal(t, http.StatusOK, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.wantLocked, body["locked"])
			if tt.wantLocked {
				assert.Equal(t, string(tt.lock), body["lockStatus"])
			} else {
				assert.NotContains(t, body, "lockStatus")
			}
		})
	}
}

func TestEventStatusHandler_Editable(t *testing.T) {
	t.Run("editable", func(t *testing.T) {
		svc := new(MockStatusCoordinator)
		h := NewEventStatusHandler(svc)
		svc.On("RequireEditableEvent", mock.Anything, testEventID).Return(nil)

		r := buildRouter(http.MethodGet, "/v1/events/:id/editable", h.EditableHandler, testUserID)
		w := doRequest(r, http.MethodGet, "/v1/events/"+testEventID+"/editable", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("locked", func(t *testing.T) {
		svc := new(MockStatusCoordinator)
		h := NewEventStatusHandler(svc)
		svc.On("RequireEditableEvent", mock.Anything, testEventID).
			Return(apperrors.Forbidden("The event is settled.", "event status is settled"))

		r := buildRouter(http.MethodGet, "/v1/events/:id/editable", h.EditableHandler, testUserID)
		w := doRequest(r, http.MethodGet, "/v1/events/"+testEventID+"/editable", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "The event is settled.", decodeBody(t, w)["message"])
	})
}

func TestEventStatusHandler_MarkStale(t *testing.T) {
	svc := new(MockStatusCoordinator)
	h := NewEventStatusHandler(svc)
	svc.On("MarkStaleIfInReview", mock.Anything, testEventID).Return(nil)

	r := buildRouter(http.MethodPost, "/v1/events/:id/stale", h.MarkStaleHandler, testUserID)
	w := doRequest(r, http.MethodPost, "/v1/events/"+testEventID+"/stale", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestEventStatusHandler_Close(t *testing.T) {
	t.Run("closed", func(t *testing.T) {
		svc := new(MockStatusCoordinator)
		h := NewEventStatusHandler(svc)
		svc.On("CloseEvent", mock.Anything, testEventID, testUserID).
			Return(&types.Event{ID: testEventID, Status: types.EventStatusClosed}, nil)

		r := buildRouter(http.MethodPost, "/v1/events/:id/close", h.CloseEventHandler, testUserID)
		w := doRequest(r, http.MethodPost, "/v1/events/"+testEventID+"/close", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "closed", decodeBody(t, w)["status"])
	})

	t.Run("not settled", func(t *testing.T) {
		svc := new(MockStatusCoordinator)
		h := NewEventStatusHandler(svc)
		svc.On("CloseEvent", mock.Anything, testEventID, testUserID).
			Return(nil, apperrors.InvalidStatusTransition("payment", "closed"))

		r := buildRouter(http.MethodPost, "/v1/events/:id/close", h.CloseEventHandler, testUserID)
		w := doRequest(r, http.MethodPost, "/v1/events/"+testEventID+"/close", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, string(apperrors.InvalidStatusTransitionError), decodeBody(t, w)["type"])
	})
}
