package openai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/utils"
)

// EmbeddingClient turns bug text into a fixed-dimension vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

type embeddingClient struct {
	log        *logger.Logger
	client     *goopenai.Client
	model      goopenai.EmbeddingModel
	dimensions int
	timeout    time.Duration
}

func NewEmbeddingClient(log *logger.Logger) (EmbeddingClient, error) {
	serviceLog := log.With("service", "EmbeddingClient")

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	model := goopenai.SmallEmbedding3
	if m := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL")); m != "" {
		model = goopenai.EmbeddingModel(m)
	}
	dimensions := utils.GetEnvAsInt("OPENAI_EMBED_DIMENSIONS", 1536, log)
	timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 30, log)

	cfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}

	return &embeddingClient{
		log:        serviceLog,
		client:     goopenai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
		timeout:    time.Duration(timeoutSec) * time.Second,
	}, nil
}

func (ec *embeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, ec.timeout)
	defer cancel()

	resp, err := ec.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      []string{text},
		Model:      ec.model,
		Dimensions: ec.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	vec := resp.Data[0].Embedding
	if len(vec) != ec.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: want=%d got=%d", ec.dimensions, len(vec))
	}
	return vec, nil
}

func (ec *embeddingClient) Dimensions() int {
	return ec.dimensions
}
