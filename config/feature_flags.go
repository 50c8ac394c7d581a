package config

import (
	"os"
	"strconv"
	"strings"
)

// FeatureFlags holds all feature flags for the application
type FeatureFlags struct {
	EnableRealPaymentGateway bool // Allows real gateways at all; per-request policy still applies
	EnableEventPublishing    bool // Publishes domain events to Redis
	LogLevel                 string
}

// GetFeatureFlags loads feature flags from environment variables
func GetFeatureFlags() FeatureFlags {
	return FeatureFlags{
		EnableRealPaymentGateway: getBoolEnv("ENABLE_REAL_PAYMENT_GATEWAY", true),
		EnableEventPublishing:    getBoolEnv("ENABLE_EVENT_PUBLISHING", true),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
	}
}

// getBoolEnv retrieves a boolean environment variable with a default value
func getBoolEnv(key string, defaultVal bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}

	// Convert to lowercase for case-insensitive comparison
	val = strings.ToLower(val)

	// Check for truthy values
	if val == "true" || val == "yes" || val == "1" || val == "on" {
		return true
	}

	// Try parsing as int
	if intVal, err := strconv.Atoi(val); err == nil {
		return intVal != 0
	}

	return false
}
