package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sladash-backend/internal/api/routes"
	"sladash-backend/internal/bus"
	"sladash-backend/internal/config"
	"sladash-backend/internal/datacache"
	"sladash-backend/internal/invalidation"
	"sladash-backend/internal/models"
	"sladash-backend/internal/repository"
	"sladash-backend/internal/services"
	"sladash-backend/pkg/database"
	"sladash-backend/pkg/ratelimit"
	"sladash-backend/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	// Connect to MongoDB
	db, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Disconnect(db.Client())

	// Initialize Redis client
	redisClient := redis.NewClient(cfg.Redis)
	defer redisClient.Close()

	// Perform initial health check
	healthStatus := redisClient.HealthCheck()
	if healthStatus.IsConnected {
		logger.Info("Redis connected", zap.String("addr", healthStatus.ConnectionInfo))
	} else {
		logger.Warn("Redis connection failed, will retry automatically", zap.String("error", healthStatus.Error))
	}

	// Repositories backing the snapshot
	entityRepo := repository.NewEntityRepository(db)
	teamRepo := repository.NewTeamRepository(db)

	// Server-side snapshot cache
	cache := datacache.New(snapshotStore{entities: entityRepo, teams: teamRepo}, cfg.Cache.RefreshInterval, logger)
	if err := cache.Start(); err != nil {
		// Serve anyway; reads return a not-ready error until the store recovers.
		logger.Warn("initial snapshot load failed", zap.Error(err))
	}
	defer cache.Stop()

	// Invalidation catalog: strict in development so unregistered write
	// scenarios fail loudly, degraded in production
	catalog := invalidation.NewCatalog(cfg.Env == "development", logger)

	// Invalidation bus with cross-instance relay
	hub := bus.NewHub(logger)
	if healthStatus.IsConnected {
		hub.SetRelay(bus.NewRedisRelay(redisClient.GetClient(), bus.DefaultRelayChannel, logger))
	}
	if err := hub.Start(); err != nil {
		log.Fatal("Failed to start invalidation bus:", err)
	}
	defer hub.Stop()

	committer := services.NewWriteCommitter(catalog, hub, cache, logger)

	// Rate limiter over Redis, skipped when Redis is down
	var limiter ratelimit.RateLimiter
	if healthStatus.IsConnected {
		limiter = ratelimit.NewRedisRateLimiter(redisClient.GetClient(), ratelimit.DefaultConfig())
	} else {
		limiter = ratelimit.NewMemoryRateLimiter(ratelimit.DefaultConfig())
	}

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS middleware
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Upgrade", "Connection", "Sec-WebSocket-Key", "Sec-WebSocket-Version", "Sec-WebSocket-Protocol"},
		ExposeHeaders: []string{"Content-Length"},
	}

	// Handle wildcard origin for development
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false // Cannot use credentials with AllowAllOrigins
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}

	router.Use(cors.New(corsConfig))

	// Setup routes
	routes.SetupRoutes(router, &routes.Dependencies{
		DB:          db,
		Cache:       cache,
		Hub:         hub,
		Committer:   committer,
		RedisClient: redisClient,
		Limiter:     limiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	return logger
}

// snapshotStore adapts the Mongo repositories to the snapshot loader.
type snapshotStore struct {
	entities *repository.EntityRepository
	teams    *repository.TeamRepository
}

func (s snapshotStore) ListEntities() ([]*models.Entity, error) { return s.entities.FindAll() }
func (s snapshotStore) ListTeams() ([]*models.Team, error)      { return s.teams.FindAll() }
func (s snapshotStore) ListTenants() ([]*models.Tenant, error)  { return s.teams.ListTenants() }
