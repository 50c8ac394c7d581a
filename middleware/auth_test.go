package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockJWTValidator struct {
	mock.Mock
}

func (m *MockJWTValidator) Validate(tokenString string) (string, error) {
	args := m.Called(tokenString)
	return args.String(0), args.Error(1)
}

var _ Validator = (*MockJWTValidator)(nil)

func setupAuthTestRouter(validator Validator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(AuthMiddleware(validator))

	r.GET("/protected", func(c *gin.Context) {
		userID, exists := c.Get(string(UserIDKey))
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "UserID not found in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Success", "user_id": userID})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	mockValidator := new(MockJWTValidator)
	router := setupAuthTestRouter(mockValidator)
	testUserID := uuid.NewString()
	validTokenString := "valid.token.string"

	testCases := []struct {
		name           string
		tokenHeader    string
		mockSetup      func()
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "No Authorization Header",
			mockSetup:      func() {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"type":"AUTHENTICATION_ERROR","code":"missing_token","message":"Authorization header missing or token not found"}`,
		},
		{
			name:           "Invalid Authorization Header Format - No Bearer",
			tokenHeader:    "InvalidToken",
			mockSetup:      func() {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"type":"AUTHENTICATION_ERROR","code":"invalid_header","message":"Invalid authorization header format"}`,
		},
		{
			name:           "Invalid Authorization Header Format - Only Bearer",
			tokenHeader:    "Bearer ",
			mockSetup:      func() {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"type":"AUTHENTICATION_ERROR","code":"invalid_header","message":"Invalid authorization header format"}`,
		},
		{
			name:        "Token Validation Fails",
			tokenHeader: fmt.Sprintf("Bearer %s", validTokenString),
			mockSetup: func() {
				mockValidator.On("Validate", validTokenString).Return("", errors.New("validation failed")).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"type":"AUTHENTICATION_ERROR","code":"invalid_token","message":"Invalid or expired token"}`,
		},
		{
			name:        "Token Expired",
			tokenHeader: fmt.Sprintf("Bearer %s", validTokenString),
			mockSetup: func() {
				mockValidator.On("Validate", validTokenString).Return("", fmt.Errorf("%w: exp not satisfied", ErrTokenExpired)).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"type":"AUTHENTICATION_ERROR","code":"token_expired","message":"Your session has expired"}`,
		},
		{
			name:        "Token Validation Succeeds",
			tokenHeader: fmt.Sprintf("Bearer %s", validTokenString),
			mockSetup: func() {
				mockValidator.On("Validate", validTokenString).Return(testUserID, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   fmt.Sprintf(`{"message":"Success","user_id":"%s"}`, testUserID),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockValidator.ExpectedCalls = nil
			mockValidator.Calls = nil
			tc.mockSetup()

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
			if tc.tokenHeader != "" {
				req.Header.Set("Authorization", tc.tokenHeader)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			assert.JSONEq(t, tc.expectedBody, w.Body.String())
			mockValidator.AssertExpectations(t)
		})
	}
}
