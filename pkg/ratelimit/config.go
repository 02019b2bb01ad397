package ratelimit

import (
	"time"
)

// Config holds the configuration for rate limiting
type Config struct {
	// Default rate limits for different endpoint types
	DefaultLimits map[string]RateLimit `json:"defaultLimits"`

	// Redis key prefix for rate limiting data
	RedisKeyPrefix string `json:"redisKeyPrefix"`

	// Cleanup interval for expired rate limit data
	CleanupInterval time.Duration `json:"cleanupInterval"`

	// Enable/disable rate limiting
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns a default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultLimits: map[string]RateLimit{
			// Entity registry - moderate limits on writes
			"entities":        {RequestsPerMinute: 100, BurstSize: 20, WindowSize: time.Minute},
			"entities_create": {RequestsPerMinute: 20, BurstSize: 5, WindowSize: time.Minute},
			"entities_update": {RequestsPerMinute: 50, BurstSize: 10, WindowSize: time.Minute},
			"entities_delete": {RequestsPerMinute: 10, BurstSize: 3, WindowSize: time.Minute},

			// Task writes
			"tasks":        {RequestsPerMinute: 100, BurstSize: 20, WindowSize: time.Minute},
			"tasks_create": {RequestsPerMinute: 30, BurstSize: 10, WindowSize: time.Minute},
			"tasks_update": {RequestsPerMinute: 50, BurstSize: 10, WindowSize: time.Minute},

			// Dashboard reads come straight off the snapshot, so they are cheap
			"dashboard": {RequestsPerMinute: 300, BurstSize: 60, WindowSize: time.Minute},

			// Notification config writes
			"notifications": {RequestsPerMinute: 50, BurstSize: 10, WindowSize: time.Minute},

			// Forced refresh hits the system of record; keep it tight
			"cache_refresh": {RequestsPerMinute: 6, BurstSize: 2, WindowSize: time.Minute},
			"cache_status":  {RequestsPerMinute: 300, BurstSize: 60, WindowSize: time.Minute},

			// Health check - very permissive
			"health": {RequestsPerMinute: 1000, BurstSize: 100, WindowSize: time.Minute},

			// Default fallback
			"default": {RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute},
		},
		RedisKeyPrefix:  "ratelimit:",
		CleanupInterval: 5 * time.Minute,
		Enabled:         true,
	}
}

// GetEndpointKey generates a rate limit key for a specific endpoint
func (c *Config) GetEndpointKey(endpoint, method string) string {
	// Map specific endpoints to rate limit categories
	endpointMap := map[string]string{
		"GET:/api/v1/entities":      "entities",
		"POST:/api/v1/entities":     "entities_create",
		"PATCH:/api/v1/entities/*":  "entities_update",
		"DELETE:/api/v1/entities/*": "entities_delete",

		"GET:/api/v1/tasks/dag/*":        "tasks",
		"POST:/api/v1/tasks":             "tasks_create",
		"PATCH:/api/v1/tasks/*/priority": "tasks_update",

		"GET:/api/v1/dashboard/*": "dashboard",

		"GET:/api/v1/notifications/entity/*": "notifications",
		"POST:/api/v1/notifications":         "notifications",
		"PATCH:/api/v1/notifications/*":      "notifications",
		"DELETE:/api/v1/notifications/*":     "notifications",

		"GET:/api/v1/cache/status":   "cache_status",
		"POST:/api/v1/cache/refresh": "cache_refresh",

		"GET:/api/v1/health": "health",
	}

	key := method + ":" + endpoint
	if category, exists := endpointMap[key]; exists {
		return category
	}

	// Check for wildcard matches
	for pattern, category := range endpointMap {
		if matchesPattern(key, pattern) {
			return category
		}
	}

	return "default"
}

// matchesPattern checks if a key matches a pattern with wildcards
func matchesPattern(key, pattern string) bool {
	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(key) >= len(prefix) && key[:len(prefix)] == prefix
	}
	return key == pattern
}
