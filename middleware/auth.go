package middleware

import (
	"errors"
	"strings"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid bearer token and stores its subject under UserIDKey.
// Failures are attached as AppErrors and rendered by ErrorHandler.
func AuthMiddleware(validator Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing_token", "Authorization header missing or token not found")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			abortUnauthorized(c, "invalid_header", "Invalid authorization header format")
			return
		}

		userID, err := validator.Validate(token)
		if err != nil {
			log.Warnw("Invalid JWT token",
				"error", err,
				"token", logger.MaskJWT(token),
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP())
			if errors.Is(err, ErrTokenExpired) {
				abortUnauthorized(c, "token_expired", "Your session has expired")
				return
			}
			abortUnauthorized(c, "invalid_token", "Invalid or expired token")
			return
		}

		c.Set(string(UserIDKey), userID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	_ = c.Error(apperrors.Unauthorized(code, message))
	c.Abort()
}
