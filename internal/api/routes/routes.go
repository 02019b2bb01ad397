package routes

import (
	"sladash-backend/internal/api/handlers"
	"sladash-backend/internal/api/middleware"
	"sladash-backend/internal/bus"
	"sladash-backend/internal/datacache"
	"sladash-backend/internal/repository"
	"sladash-backend/internal/services"
	"sladash-backend/pkg/ratelimit"
	"sladash-backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependencies collects the long-lived components built in main that the
// request handlers share.
type Dependencies struct {
	DB          *mongo.Database
	Cache       *datacache.DataCache
	Hub         *bus.Hub
	Committer   *services.WriteCommitter
	RedisClient *redis.Client
	Limiter     ratelimit.RateLimiter
}

func SetupRoutes(router *gin.Engine, deps *Dependencies) {
	// Initialize repositories
	entityRepo := repository.NewEntityRepository(deps.DB)
	taskRepo := repository.NewTaskRepository(deps.DB)
	notificationRepo := repository.NewNotificationRepository(deps.DB)

	// Initialize services
	entityService := services.NewEntityService(entityRepo, deps.Committer)
	taskService := services.NewTaskService(taskRepo, entityRepo, deps.Committer)
	notificationService := services.NewNotificationService(notificationRepo, deps.Committer)
	dashboardService := services.NewDashboardService(deps.Cache)

	// Initialize handlers
	entityHandler := handlers.NewEntityHandler(entityService)
	taskHandler := handlers.NewTaskHandler(taskService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	cacheHandler := handlers.NewCacheHandler(deps.Cache)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.RedisClient, deps.Cache)

	// API routes
	api := router.Group("/api/v1")
	if deps.Limiter != nil {
		api.Use(middleware.RateLimitMiddleware(deps.Limiter))
	}

	api.GET("/health", healthHandler.HealthCheck)

	// Entity registry
	entities := api.Group("/entities")
	{
		entities.GET("", entityHandler.GetEntities)
		entities.POST("", entityHandler.CreateEntity)
		entities.GET("/:id", entityHandler.GetEntity)
		entities.PATCH("/:id", entityHandler.UpdateEntity)
		entities.DELETE("/:id", entityHandler.DeleteEntity)
	}

	// Tasks
	tasks := api.Group("/tasks")
	{
		tasks.GET("/dag/:dagId", taskHandler.GetTasksByDag)
		tasks.POST("", taskHandler.CreateTask)
		tasks.PATCH("/:id/priority", taskHandler.UpdateTaskPriority)
	}

	// Dashboard reads, all served from the snapshot
	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("/entities", dashboardHandler.GetDashboardEntities)
		dashboard.GET("/tenants/:tenant/metrics", dashboardHandler.GetTenantMetrics)
		dashboard.GET("/tenants/:tenant/teams", dashboardHandler.GetTenantTeams)
	}

	// Notification configs
	notifications := api.Group("/notifications")
	{
		notifications.GET("/entity/:entityId", notificationHandler.GetNotifications)
		notifications.POST("", notificationHandler.CreateNotification)
		notifications.PATCH("/:id", notificationHandler.UpdateNotification)
		notifications.DELETE("/:id", notificationHandler.DeleteNotification)
	}

	// Snapshot cache administration
	cache := api.Group("/cache")
	{
		cache.GET("/status", cacheHandler.GetCacheStatus)
		cache.POST("/refresh", cacheHandler.RefreshCache)
	}

	// Invalidation bus
	api.GET("/ws", wsHandler.HandleConnection)
	api.GET("/ws/stats", wsHandler.GetStats)
}
