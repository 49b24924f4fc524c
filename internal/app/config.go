package app

import (
	"strings"
	"time"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/services"
	"github.com/bugrelay/bugrelay-backend/internal/utils"
)

type Config struct {
	JWTSecretKey       string
	StaffTokenTTL      time.Duration
	MaxAttachments     int
	EnrichmentPoolSize int
	EnrichmentRescan   time.Duration
	SimilarityPolicy   services.SimilarityPolicy
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	staffTokenTTLSeconds := utils.GetEnvAsInt("STAFF_TOKEN_TTL", 3600, log)
	maxAttachments := utils.GetEnvAsInt("MAX_ATTACHMENTS", 10, log)
	enrichmentPoolSize := utils.GetEnvAsInt("ENRICHMENT_POOL_SIZE", 4, log)
	enrichmentRescanSeconds := utils.GetEnvAsInt("ENRICHMENT_RESCAN_SECONDS", 0, log)

	policy := services.DefaultSimilarityPolicy()
	if path := strings.TrimSpace(utils.GetEnv("SIMILARITY_POLICY_PATH", "", log)); path != "" {
		loaded, err := services.LoadSimilarityPolicy(path)
		if err != nil {
			log.Warn("could not load similarity policy file, using defaults", "path", path, "error", err)
		} else {
			policy = loaded
		}
	}
	policy.DuplicateThreshold = utils.GetEnvAsFloat("SIMILARITY_DUPLICATE_THRESHOLD", policy.DuplicateThreshold, log)
	policy.RelatedThreshold = utils.GetEnvAsFloat("SIMILARITY_RELATED_THRESHOLD", policy.RelatedThreshold, log)

	return Config{
		JWTSecretKey:       jwtSecretKey,
		StaffTokenTTL:      time.Duration(staffTokenTTLSeconds) * time.Second,
		MaxAttachments:     maxAttachments,
		EnrichmentPoolSize: enrichmentPoolSize,
		EnrichmentRescan:   time.Duration(enrichmentRescanSeconds) * time.Second,
		SimilarityPolicy:   policy,
	}
}
