package logger

import (
	"github.com/gin-gonic/gin"
)

// LogHTTPError logs a failed request with the request metadata the error
// handler has available.
func LogHTTPError(c *gin.Context, err error, statusCode int, message string) {
	log := GetLogger()

	fields := []interface{}{
		"status", statusCode,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
	}
	if requestID := c.GetString("request_id"); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if userID := c.GetString("userID"); userID != "" {
		fields = append(fields, "user_id", userID)
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}

	if statusCode >= 500 {
		log.Errorw(message, fields...)
		return
	}
	log.Warnw(message, fields...)
}
