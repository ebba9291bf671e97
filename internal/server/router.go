package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sharkteam/plantcloud-backend/internal/handlers"
	"github.com/sharkteam/plantcloud-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	UserHandler     *handlers.UserHandler
	PlantHandler    *handlers.PlantHandler
	SensorHandler   *handlers.SensorHandler
	SearchHandler   *handlers.SearchHandler
	VacationHandler *handlers.VacationHandler
	TracingEnabled  bool
}

func allowedOrigins() []string {
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		return strings.Split(raw, ",")
	}
	return []string{
		"http://localhost:80",
		"http://localhost:3000",
		"http://localhost:5174",
	}
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("plantcloud-backend"))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// User / gamification
	protected.GET("/user", cfg.UserHandler.GetProfile)
	protected.POST("/actions", cfg.UserHandler.ApplyAction)
	protected.GET("/leaderboard", cfg.UserHandler.Leaderboard)
	// Plants
	protected.POST("/plants", cfg.PlantHandler.Add)
	protected.POST("/plants/upload", cfg.PlantHandler.AddWithImage)
	protected.GET("/plants", cfg.PlantHandler.List)
	protected.GET("/plants/:plant_id", cfg.PlantHandler.Get)
	protected.DELETE("/plants/:plant_id", cfg.PlantHandler.Delete)
	// Sensors
	protected.POST("/sensors", cfg.SensorHandler.Record)
	protected.GET("/sensors", cfg.SensorHandler.All)
	protected.PATCH("/sensors/:reading_id", cfg.SensorHandler.Update)
	protected.GET("/plants/:plant_id/sensors", cfg.SensorHandler.History)
	protected.GET("/plants/:plant_id/sensors/latest", cfg.SensorHandler.Latest)
	protected.POST("/plants/:plant_id/sensors/sync", cfg.SensorHandler.Sync)
	// Knowledge base / retrieval
	protected.GET("/search", cfg.SearchHandler.Search)
	protected.POST("/ask", cfg.SearchHandler.Ask)
	protected.POST("/index/build", cfg.SearchHandler.BuildIndex)
	protected.GET("/articles", cfg.SearchHandler.Articles)
	protected.POST("/articles", cfg.SearchHandler.AddArticle)
	// Vacation
	protected.GET("/vacation", cfg.VacationHandler.Estimate)

	return router
}
