package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testEventID      = "11111111-1111-1111-1111-111111111111"
	testSettlementID = "22222222-2222-2222-2222-222222222222"
	testUserID       = "33333333-3333-3333-3333-333333333333"
)

func init() {
	logger.IsTest = true
}

func buildRouter(method, path string, handler gin.HandlerFunc, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(string(middleware.UserIDKey), userID)
		}
		c.Next()
	})
	r.Handle(method, path, handler)
	return r
}

func doRequest(r *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
