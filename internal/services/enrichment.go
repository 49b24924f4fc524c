package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/clients/openai"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
)

// EnrichmentService computes semantic vectors for stored bug reports, detached
// from the request that created them. Schedule never blocks the caller and no
// failure ever propagates back: a bug with a null embedding is a valid state
// that simply means "not yet analyzed".
type EnrichmentService interface {
	Schedule(bugID uuid.UUID, title, description string)
	// Enrich runs one enrichment synchronously. The async path and the rescan
	// loop both funnel through it; it is exported for those and for tests.
	Enrich(ctx context.Context, bugID uuid.UUID, title, description string) error
	Start(ctx context.Context)
	Close()
}

type enrichmentService struct {
	db            *gorm.DB
	log           *logger.Logger
	bugReportRepo repos.BugReportRepo
	embedder      openai.EmbeddingClient
	pool          *ants.Pool

	rescanInterval time.Duration
	taskTimeout    time.Duration
}

func NewEnrichmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bugReportRepo repos.BugReportRepo,
	embedder openai.EmbeddingClient,
	poolSize int,
	rescanInterval time.Duration,
) (EnrichmentService, error) {
	if poolSize <= 0 {
		poolSize = 4
	}
	// Nonblocking: a saturated pool rejects instead of parking the caller.
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &enrichmentService{
		db:             db,
		log:            baseLog.With("service", "EnrichmentService"),
		bugReportRepo:  bugReportRepo,
		embedder:       embedder,
		pool:           pool,
		rescanInterval: rescanInterval,
		taskTimeout:    2 * time.Minute,
	}, nil
}

func (s *enrichmentService) Schedule(bugID uuid.UUID, title, description string) {
	task := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
		defer cancel()
		if err := s.Enrich(ctx, bugID, title, description); err != nil {
			s.log.Warn("enrichment failed, bug remains unembedded", "bug_report_id", bugID, "error", err)
		}
	}
	if err := s.pool.Submit(task); err != nil {
		// Pool saturated or released; the contract is still "enqueue never
		// blocks, task failure never propagates".
		s.log.Warn("enrichment pool rejected task, running detached", "bug_report_id", bugID, "error", err)
		go task()
	}
}

func (s *enrichmentService) Enrich(ctx context.Context, bugID uuid.UUID, title, description string) error {
	text := strings.TrimSpace(title + "\n\n" + description)
	if text == "" {
		// Nothing meaningful to embed; not an error.
		s.log.Debug("skipping enrichment for empty text", "bug_report_id", bugID)
		return nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	// Single atomic update: readers see null or the whole vector, never a
	// torn write. Re-running overwrites, it never duplicates.
	return s.bugReportRepo.UpdateEmbedding(ctx, nil, bugID, datatypes.JSON(encoded), time.Now().UTC())
}

// Start launches the periodic rescan of unembedded reports when configured.
// With a zero interval enrichment stays purely submission-driven.
func (s *enrichmentService) Start(ctx context.Context) {
	if s.rescanInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.rescanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.rescan(ctx)
			}
		}
	}()
	s.log.Info("enrichment rescan started", "interval", s.rescanInterval)
}

func (s *enrichmentService) rescan(ctx context.Context) {
	reports, err := s.bugReportRepo.ListUnembedded(ctx, nil, 100)
	if err != nil {
		s.log.Warn("enrichment rescan query failed", "error", err)
		return
	}
	for _, report := range reports {
		s.Schedule(report.ID, report.Title, report.Description)
	}
	if len(reports) > 0 {
		s.log.Info("enrichment rescan re-queued reports", "count", len(reports))
	}
}

func (s *enrichmentService) Close() {
	s.pool.Release()
}
