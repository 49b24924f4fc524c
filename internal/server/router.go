package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/bugrelay/bugrelay-backend/internal/handlers"
	"github.com/bugrelay/bugrelay-backend/internal/middleware"
)

type RouterConfig struct {
	ReportHandler       *handlers.ReportHandler
	SimilarityHandler   *handlers.SimilarityHandler
	MessageHandler      *handlers.MessageHandler
	APIKeyMiddleware    *middleware.APIKeyMiddleware
	StaffAuthMiddleware *middleware.StaffAuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("bugrelay"))

	// Cors. Mounted on the engine so preflight OPTIONS requests are answered
	// even though no OPTIONS route exists. The SDK submits from arbitrary
	// third-party origins, so CORS is wide open; the API key is the
	// authentication boundary, not the origin.
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Public    ||
	// ===============
	public := router.Group("/api/v1")
	public.GET("/reports", cfg.ReportHandler.MethodNotAllowed)
	public.POST("/reports", cfg.APIKeyMiddleware.RequireAPIKey(), cfg.ReportHandler.SubmitBugReport)

	// ===============
	// || Staff     ||
	// ===============
	staff := router.Group("/api/v1/staff")
	staff.Use(cfg.StaffAuthMiddleware.RequireStaff())
	staff.GET("/bug-reports/:id", cfg.ReportHandler.GetBugReport)
	staff.PATCH("/bug-reports/:id/status", cfg.ReportHandler.UpdateStatus)
	staff.GET("/bug-reports/:id/similar", cfg.SimilarityHandler.GetSimilar)
	staff.POST("/bug-reports/:id/similar/dismiss", cfg.SimilarityHandler.DismissSuggestion)
	staff.GET("/bug-reports/:id/messages", cfg.MessageHandler.ListMessages)
	staff.POST("/bug-reports/:id/messages", cfg.MessageHandler.AppendMessage)

	return router
}
