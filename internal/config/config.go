package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Env            string
	MongoURI       string
	AllowedOrigins []string
	Redis          RedisConfig
	Cache          CacheConfig
}

// RedisConfig holds connection settings for the invalidation relay and the
// rate limiter store.
type RedisConfig struct {
	URL          string
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	RetryDelay   time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// CacheConfig drives the server snapshot refresh schedule and the
// per-resource-type TTLs used by client-side caches. TTLs are deliberately
// configuration, not constants: entities, tasks and dashboard summaries
// refresh at different rates.
type CacheConfig struct {
	RefreshInterval time.Duration
	EntityTTL       time.Duration
	TaskTTL         time.Duration
	DashboardTTL    time.Duration
	NotificationTTL time.Duration
}

// TTLForResource returns the client cache TTL for a resource type.
func (c CacheConfig) TTLForResource(resource string) time.Duration {
	switch resource {
	case "entity", "entities":
		return c.EntityTTL
	case "task", "tasks":
		return c.TaskTTL
	case "dashboard", "metrics":
		return c.DashboardTTL
	case "notification", "notifications":
		return c.NotificationTTL
	default:
		return c.EntityTTL
	}
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		RefreshInterval: 6 * time.Hour,
		EntityTTL:       6 * time.Hour,
		TaskTTL:         5 * time.Minute,
		DashboardTTL:    5 * time.Minute,
		NotificationTTL: 6 * time.Hour,
	}
}

func Load() *Config {
	// .env is optional; deployments configure via the environment
	_ = godotenv.Load()

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI environment variable is not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173"
	}

	cache := DefaultCacheConfig()
	cache.RefreshInterval = durationEnv("CACHE_REFRESH_INTERVAL", cache.RefreshInterval)
	cache.EntityTTL = durationEnv("ENTITY_TTL", cache.EntityTTL)
	cache.TaskTTL = durationEnv("TASK_TTL", cache.TaskTTL)
	cache.DashboardTTL = durationEnv("DASHBOARD_TTL", cache.DashboardTTL)
	cache.NotificationTTL = durationEnv("NOTIFICATION_TTL", cache.NotificationTTL)

	return &Config{
		Port:           port,
		Env:            env,
		MongoURI:       mongoURI,
		AllowedOrigins: splitAndTrim(allowedOrigins),
		Redis:          loadRedisConfig(),
		Cache:          cache,
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		Host:         envOr("REDIS_HOST", "localhost"),
		Port:         envOr("REDIS_PORT", "6379"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           intEnv("REDIS_DB", 0),
		PoolSize:     intEnv("REDIS_POOL_SIZE", 10),
		MinIdleConns: intEnv("REDIS_MIN_IDLE_CONNS", 2),
		MaxRetries:   intEnv("REDIS_MAX_RETRIES", 3),
		RetryDelay:   durationEnv("REDIS_RETRY_DELAY", 500*time.Millisecond),
		DialTimeout:  durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  durationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		PoolTimeout:  durationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
