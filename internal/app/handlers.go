package app

import (
	"github.com/gin-gonic/gin"

	"github.com/bugrelay/bugrelay-backend/internal/handlers"
	"github.com/bugrelay/bugrelay-backend/internal/middleware"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/server"
)

type Handlers struct {
	Report     *handlers.ReportHandler
	Similarity *handlers.SimilarityHandler
	Message    *handlers.MessageHandler
}

type Middleware struct {
	APIKey    *middleware.APIKeyMiddleware
	StaffAuth *middleware.StaffAuthMiddleware
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Report:     handlers.NewReportHandler(log, services.Ingestion, services.Report),
		Similarity: handlers.NewSimilarityHandler(log, services.Similarity),
		Message:    handlers.NewMessageHandler(log, services.Message),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		APIKey:    middleware.NewAPIKeyMiddleware(log, services.Auth),
		StaffAuth: middleware.NewStaffAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ReportHandler:       handlers.Report,
		SimilarityHandler:   handlers.Similarity,
		MessageHandler:      handlers.Message,
		APIKeyMiddleware:    middleware.APIKey,
		StaffAuthMiddleware: middleware.StaffAuth,
	})
}
