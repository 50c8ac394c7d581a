package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		"Accept",
		RequestIDHeader,
	}
)

const corsMaxAge = 12 * time.Hour

// CORSMiddleware allows the configured origins. A "*" entry (or no entries)
// delegates to gin-contrib/cors with every origin allowed. Explicit lists support
// "*.example.com" wildcards and let disallowed origins through without CORS headers.
func CORSMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	if len(cfg.AllowedOrigins) == 0 || containsOrigin(cfg.AllowedOrigins, "*") {
		return cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           corsMaxAge,
		})
	}

	allowed := cfg.AllowedOrigins
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin == "":
			setCORSHeaders(c, "*")
		case originAllowed(allowed, origin):
			setCORSHeaders(c, origin)
			c.Header("Vary", "Origin")
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
	c.Header("Access-Control-Allow-Headers", strings.Join(corsHeaders, ", "))
	c.Header("Access-Control-Allow-Credentials", "true")
	c.Header("Access-Control-Max-Age", "43200")
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == origin {
			return true
		}
		if strings.HasPrefix(a, "*.") && strings.HasSuffix(origin, strings.TrimPrefix(a, "*")) {
			return true
		}
	}
	return false
}

// containsOrigin checks if a string is present in the allowed origins slice
func containsOrigin(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}
