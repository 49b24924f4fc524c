package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

func newEnrichmentEnv(t *testing.T, embedder *fakeEmbedder) (EnrichmentService, repos.BugReportRepo, *types.BugReport) {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()
	bugRepo := repos.NewBugReportRepo(db, log)
	svc, err := NewEnrichmentService(db, log, bugRepo, embedder, 2, 0)
	if err != nil {
		t.Fatalf("new enrichment service: %v", err)
	}
	t.Cleanup(svc.Close)

	tenant := seedTenant(t, db, "Acme", "Storefront")
	report, err := bugRepo.Create(context.Background(), nil, &types.BugReport{
		OrganizationID: tenant.OrganizationID,
		ApplicationID:  tenant.ApplicationID,
		Title:          "Search returns nothing",
		Description:    "empty result list for every query",
		PageURL:        "https://store.example.com/search",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return svc, bugRepo, report
}

func TestEnrich_WritesVectorAndTimestamp(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	svc, bugRepo, report := newEnrichmentEnv(t, embedder)

	if err := svc.Enrich(context.Background(), report.ID, report.Title, report.Description); err != nil {
		t.Fatalf("enrich: %v", err)
	}

	stored, err := bugRepo.GetByID(context.Background(), nil, report.ID)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	var vec []float32
	if err := json.Unmarshal(stored.Embedding, &vec); err != nil {
		t.Fatalf("decode stored embedding: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Fatalf("stored embedding = %#v", vec)
	}
	if stored.EmbeddingGeneratedAt == nil {
		t.Fatalf("embedding_generated_at not set")
	}
}

func TestEnrich_RerunOverwritesInsteadOfDuplicating(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	svc, bugRepo, report := newEnrichmentEnv(t, embedder)
	ctx := context.Background()

	if err := svc.Enrich(ctx, report.ID, report.Title, report.Description); err != nil {
		t.Fatalf("first enrich: %v", err)
	}
	embedder.vector = []float32{0, 1}
	if err := svc.Enrich(ctx, report.ID, report.Title, report.Description); err != nil {
		t.Fatalf("second enrich: %v", err)
	}

	stored, err := bugRepo.GetByID(ctx, nil, report.ID)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	var vec []float32
	if err := json.Unmarshal(stored.Embedding, &vec); err != nil {
		t.Fatalf("decode stored embedding: %v", err)
	}
	if vec[0] != 0 || vec[1] != 1 {
		t.Fatalf("rerun did not overwrite: %#v", vec)
	}
}

func TestEnrich_EmptyTextIsSilentlySkipped(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	svc, bugRepo, report := newEnrichmentEnv(t, embedder)

	if err := svc.Enrich(context.Background(), report.ID, "   ", ""); err != nil {
		t.Fatalf("empty text must not error: %v", err)
	}
	if embedder.callCount() != 0 {
		t.Fatalf("embedder called for empty text")
	}
	stored, err := bugRepo.GetByID(context.Background(), nil, report.ID)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if len(stored.Embedding) != 0 {
		t.Fatalf("embedding should stay null for empty text")
	}
}

func TestEnrich_EmbedderFailureLeavesRowUnembedded(t *testing.T) {
	embedder := &fakeEmbedder{failErr: errors.New("provider down")}
	svc, bugRepo, report := newEnrichmentEnv(t, embedder)

	if err := svc.Enrich(context.Background(), report.ID, report.Title, report.Description); err == nil {
		t.Fatalf("want error from failing embedder")
	}
	stored, err := bugRepo.GetByID(context.Background(), nil, report.ID)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if len(stored.Embedding) != 0 || stored.EmbeddingGeneratedAt != nil {
		t.Fatalf("failed enrichment must not touch the row")
	}
}

func TestSchedule_RunsAsyncAndSwallowsFailure(t *testing.T) {
	embedder := &fakeEmbedder{failErr: errors.New("provider down")}
	svc, _, report := newEnrichmentEnv(t, embedder)

	// Must return immediately and never surface the failure.
	svc.Schedule(report.ID, report.Title, report.Description)

	deadline := time.Now().Add(5 * time.Second)
	for embedder.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("scheduled task never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRescan_RequeuesOnlyUnembeddedReports(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	db := newTestDB(t)
	log := logger.NewNop()
	bugRepo := repos.NewBugReportRepo(db, log)
	svc, err := NewEnrichmentService(db, log, bugRepo, embedder, 2, 0)
	if err != nil {
		t.Fatalf("new enrichment service: %v", err)
	}
	t.Cleanup(svc.Close)
	tenant := seedTenant(t, db, "Acme", "Storefront")
	ctx := context.Background()

	pending, err := bugRepo.Create(ctx, nil, &types.BugReport{
		OrganizationID: tenant.OrganizationID,
		ApplicationID:  tenant.ApplicationID,
		Title:          "Needs a vector",
		Description:    "still waiting",
		PageURL:        "https://store.example.com/",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	done, err := bugRepo.Create(ctx, nil, &types.BugReport{
		OrganizationID: tenant.OrganizationID,
		ApplicationID:  tenant.ApplicationID,
		Title:          "Already embedded",
		Description:    "all set",
		PageURL:        "https://store.example.com/",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if err := svc.Enrich(ctx, done.ID, done.Title, done.Description); err != nil {
		t.Fatalf("prime embedded report: %v", err)
	}
	primed := embedder.callCount()

	svc.(*enrichmentService).rescan(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		stored, err := bugRepo.GetByID(ctx, nil, pending.ID)
		if err != nil {
			t.Fatalf("load report: %v", err)
		}
		if len(stored.Embedding) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("rescan never embedded the pending report")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if embedder.callCount() != primed+1 {
		t.Fatalf("rescan embedded %d reports, want 1", embedder.callCount()-primed)
	}
}
