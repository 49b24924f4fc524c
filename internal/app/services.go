package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/clients/gcp"
	openaiclient "github.com/bugrelay/bugrelay-backend/internal/clients/openai"
	redisclient "github.com/bugrelay/bugrelay-backend/internal/clients/redis"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/services"
	"github.com/bugrelay/bugrelay-backend/internal/utils"
)

type Services struct {
	Auth       services.AuthService
	Ingestion  services.IngestionService
	Enrichment services.EnrichmentService
	Similarity services.SimilarityService
	Report     services.ReportService
	Message    services.MessageService

	KeyCache redisclient.APIKeyCache
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init bucket service: %w", err)
	}

	embeddingClient, err := openaiclient.NewEmbeddingClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init embedding client: %w", err)
	}

	// The key cache is an optimization; the app runs fine without redis.
	var keyCache redisclient.APIKeyCache
	if utils.GetEnv("REDIS_ADDR", "", log) != "" {
		keyCache, err = redisclient.NewAPIKeyCache(log)
		if err != nil {
			log.Warn("api key cache unavailable, continuing without it", "error", err)
			keyCache = nil
		}
	}

	authService := services.NewAuthService(db, log, reposet.APIKey, keyCache, cfg.JWTSecretKey, cfg.StaffTokenTTL)

	enrichmentService, err := services.NewEnrichmentService(db, log, reposet.BugReport, embeddingClient, cfg.EnrichmentPoolSize, cfg.EnrichmentRescan)
	if err != nil {
		return Services{}, fmt.Errorf("init enrichment service: %w", err)
	}

	ingestionService := services.NewIngestionService(db, log, reposet.BugReport, bucketService, enrichmentService, cfg.MaxAttachments)
	similarityService := services.NewSimilarityService(db, log, reposet.BugReport, reposet.SuggestionDismissal, reposet.Application, cfg.SimilarityPolicy)
	reportService := services.NewReportService(db, log, reposet.BugReport)
	messageService := services.NewMessageService(db, log, reposet.BugReport, reposet.BugReportMessage)

	return Services{
		Auth:       authService,
		Ingestion:  ingestionService,
		Enrichment: enrichmentService,
		Similarity: similarityService,
		Report:     reportService,
		Message:    messageService,
		KeyCache:   keyCache,
	}, nil
}
