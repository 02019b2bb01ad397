package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sladash-backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware creates a rate limiting middleware
func RateLimitMiddleware(limiter ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip rate limiting for health checks in development
		if c.Request.URL.Path == "/api/v1/health" && gin.Mode() == gin.DebugMode {
			c.Next()
			return
		}

		// Get client identifier
		clientID := getClientID(c)

		// Get endpoint identifier
		endpoint := getEndpointID(c)

		// Check rate limit
		allowed, resetTime, err := limiter.Allow(clientID, endpoint)
		if err != nil {
			// Log error but don't block request on rate limiter failure
			c.Header("X-RateLimit-Error", "Rate limiter unavailable")
			c.Next()
			return
		}

		// Get current limits for headers
		limits := limiter.GetLimits(clientID)
		endpointKey := getEndpointKey(endpoint)

		var currentLimit ratelimit.RateLimit
		if limit, exists := limits[endpointKey]; exists {
			currentLimit = limit
		} else if limit, exists := limits["default"]; exists {
			currentLimit = limit
		} else {
			// Fallback default
			currentLimit = ratelimit.RateLimit{
				RequestsPerMinute: 60,
				BurstSize:         15,
				WindowSize:        time.Minute,
			}
		}

		// Set rate limit headers
		setRateLimitHeaders(c, currentLimit, allowed, resetTime)

		if !allowed {
			// Request blocked by rate limiter
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"message":    fmt.Sprintf("Too many requests. Try again in %v", resetTime),
				"code":       "RATE_LIMIT_EXCEEDED",
				"retryAfter": int(resetTime.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// getClientID extracts a unique client identifier from the request
func getClientID(c *gin.Context) string {
	// Check for API key in headers
	if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
		return fmt.Sprintf("api:%s", apiKey)
	}

	// Fallback to IP + User-Agent hash for anonymous requests
	ip := getClientIP(c)
	userAgent := c.GetHeader("User-Agent")

	return fmt.Sprintf("anon:%s:%s", ip, hashString(userAgent))
}

// getClientIP extracts the real client IP address
func getClientIP(c *gin.Context) string {
	// Check for forwarded headers first
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		// Take the first IP in the chain
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}

	// Fallback to remote address
	return c.ClientIP()
}

// hashString creates a simple hash of a string for client identification
func hashString(s string) string {
	if s == "" {
		return "unknown"
	}

	hash := uint32(0)
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}

	return fmt.Sprintf("%08x", hash)
}

// getEndpointID creates a unique identifier for the endpoint
func getEndpointID(c *gin.Context) string {
	method := c.Request.Method
	path := c.Request.URL.Path

	// Normalize path by replacing IDs with placeholders
	normalizedPath := normalizePath(path)

	return fmt.Sprintf("%s:%s", method, normalizedPath)
}

// normalizePath replaces dynamic segments with placeholders
func normalizePath(path string) string {
	// Replace ID-like segments with placeholders so similar endpoints share
	// a rate limit bucket
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if isID(segment) {
			segments[i] = "*"
		}
	}

	return strings.Join(segments, "/")
}

// isID checks if a string looks like an ID
func isID(s string) bool {
	if s == "" {
		return false
	}

	// Check for MongoDB ObjectID (24 hex characters)
	if len(s) == 24 {
		hex := true
		for _, c := range s {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
				hex = false
				break
			}
		}
		if hex {
			return true
		}
	}

	// Check for UUID pattern (8-4-4-4-12 hex characters)
	if len(s) == 36 && s[8] == '-' && s[13] == '-' && s[18] == '-' && s[23] == '-' {
		return true
	}

	// Check for numeric ID
	if _, err := strconv.Atoi(s); err == nil {
		return true
	}

	return false
}

// getEndpointKey maps a normalized endpoint to a rate limit category
func getEndpointKey(endpoint string) string {
	// This should match the logic in pkg/ratelimit/config.go
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

	if category, exists := endpointMap[endpoint]; exists {
		return category
	}

	// Check for wildcard matches
	for pattern, category := range endpointMap {
		if matchesEndpointPattern(endpoint, pattern) {
			return category
		}
	}

	return "default"
}

// matchesEndpointPattern checks if an endpoint matches a pattern with wildcards
func matchesEndpointPattern(endpoint, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		prefix := pattern[:len(pattern)-1]
		return len(endpoint) >= len(prefix) && endpoint[:len(prefix)] == prefix
	}
	return endpoint == pattern
}

// setRateLimitHeaders sets standard rate limiting headers
func setRateLimitHeaders(c *gin.Context, limit ratelimit.RateLimit, allowed bool, resetTime time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit.RequestsPerMinute))
	c.Header("X-RateLimit-Window", strconv.Itoa(int(limit.WindowSize.Seconds())))
	c.Header("X-RateLimit-Burst", strconv.Itoa(limit.BurstSize))

	if !allowed {
		c.Header("Retry-After", strconv.Itoa(int(resetTime.Seconds())))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(resetTime).Unix(), 10))
	}

	if gin.Mode() == gin.DebugMode {
		c.Header("X-RateLimit-Allowed", strconv.FormatBool(allowed))
		if resetTime > 0 {
			c.Header("X-RateLimit-Reset-Time", resetTime.String())
		}
	}
}
