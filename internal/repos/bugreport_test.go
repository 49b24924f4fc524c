package repos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&types.Organization{},
		&types.Application{},
		&types.APIKey{},
		&types.BugReport{},
		&types.SuggestionDismissal{},
		&types.BugReportMessage{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedOrgAndApp(t *testing.T, db *gorm.DB, name string) (uuid.UUID, uuid.UUID) {
	t.Helper()
	log := logger.NewNop()
	org, err := NewOrganizationRepo(db, log).Create(context.Background(), nil, &types.Organization{Name: name, Slug: name})
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
	app, err := NewApplicationRepo(db, log).Create(context.Background(), nil, &types.Application{
		OrganizationID: org.ID, Name: name + " app", Platform: "web",
	})
	if err != nil {
		t.Fatalf("seed app: %v", err)
	}
	return org.ID, app.ID
}

func createReport(t *testing.T, repo BugReportRepo, orgID, appID uuid.UUID, title string, embedding datatypes.JSON) *types.BugReport {
	t.Helper()
	report, err := repo.Create(context.Background(), nil, &types.BugReport{
		OrganizationID: orgID,
		ApplicationID:  appID,
		Title:          title,
		Description:    "desc",
		PageURL:        "https://example.com/",
		Embedding:      embedding,
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return report
}

func TestBugReportRepo_UpdateStatusIsOrgScoped(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	repo := NewBugReportRepo(db, log)
	orgA, appA := seedOrgAndApp(t, db, "acme")
	orgB, _ := seedOrgAndApp(t, db, "globex")
	ctx := context.Background()

	report := createReport(t, repo, orgA, appA, "scoped", nil)

	if err := repo.UpdateStatus(ctx, nil, orgB, report.ID, types.BugStatusResolved); err != nil {
		t.Fatalf("cross-org update should be a no-op, not an error: %v", err)
	}
	stored, err := repo.GetByID(ctx, nil, report.ID)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if stored.Status != types.BugStatusNew {
		t.Fatalf("cross-org update changed status to %q", stored.Status)
	}

	if err := repo.UpdateStatus(ctx, nil, orgA, report.ID, types.BugStatusResolved); err != nil {
		t.Fatalf("update status: %v", err)
	}
	stored, err = repo.GetByID(ctx, nil, report.ID)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if stored.Status != types.BugStatusResolved {
		t.Fatalf("status = %q, want resolved", stored.Status)
	}
}

func TestBugReportRepo_ListEmbeddedExcludesSubjectAndUnembedded(t *testing.T) {
	db := newTestDB(t)
	repo := NewBugReportRepo(db, logger.NewNop())
	orgID, appID := seedOrgAndApp(t, db, "acme")
	ctx := context.Background()

	vec := datatypes.JSON([]byte(`[1,0]`))
	subject := createReport(t, repo, orgID, appID, "subject", vec)
	embedded := createReport(t, repo, orgID, appID, "embedded", vec)
	createReport(t, repo, orgID, appID, "bare", nil)

	results, err := repo.ListEmbeddedByOrganization(ctx, nil, orgID, subject.ID)
	if err != nil {
		t.Fatalf("list embedded: %v", err)
	}
	if len(results) != 1 || results[0].ID != embedded.ID {
		t.Fatalf("list embedded = %#v, want only %s", results, embedded.ID)
	}
}

func TestBugReportRepo_UpdateEmbeddingSetsVectorAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	repo := NewBugReportRepo(db, logger.NewNop())
	orgID, appID := seedOrgAndApp(t, db, "acme")
	ctx := context.Background()

	report := createReport(t, repo, orgID, appID, "pending", nil)
	now := time.Now().UTC()

	if err := repo.UpdateEmbedding(ctx, nil, report.ID, datatypes.JSON([]byte(`[0.5,0.5]`)), now); err != nil {
		t.Fatalf("update embedding: %v", err)
	}
	stored, err := repo.GetByID(ctx, nil, report.ID)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if len(stored.Embedding) == 0 || stored.EmbeddingGeneratedAt == nil {
		t.Fatalf("embedding write incomplete: %#v", stored)
	}

	unembedded, err := repo.ListUnembedded(ctx, nil, 0)
	if err != nil {
		t.Fatalf("list unembedded: %v", err)
	}
	if len(unembedded) != 0 {
		t.Fatalf("embedded report still listed as unembedded")
	}
}

func TestSuggestionDismissalRepo_DuplicatePairIsNoOp(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	bugRepo := NewBugReportRepo(db, log)
	dismissalRepo := NewSuggestionDismissalRepo(db, log)
	orgID, appID := seedOrgAndApp(t, db, "acme")
	ctx := context.Background()

	subject := createReport(t, bugRepo, orgID, appID, "subject", nil)
	candidate := createReport(t, bugRepo, orgID, appID, "candidate", nil)

	for i := 0; i < 2; i++ {
		err := dismissalRepo.Create(ctx, nil, &types.SuggestionDismissal{
			BugReportID:          subject.ID,
			SuggestedBugReportID: candidate.ID,
			SuggestionType:       types.SuggestionTypeDuplicate,
		})
		if err != nil {
			t.Fatalf("dismissal insert %d: %v", i+1, err)
		}
	}

	rows, err := dismissalRepo.ListByBugReport(ctx, nil, subject.ID)
	if err != nil {
		t.Fatalf("list dismissals: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d dismissal rows, want 1", len(rows))
	}

	// Same pair under the other type is a distinct dismissal.
	err = dismissalRepo.Create(ctx, nil, &types.SuggestionDismissal{
		BugReportID:          subject.ID,
		SuggestedBugReportID: candidate.ID,
		SuggestionType:       types.SuggestionTypeRelated,
	})
	if err != nil {
		t.Fatalf("related dismissal insert: %v", err)
	}
	rows, err = dismissalRepo.ListByBugReport(ctx, nil, subject.ID)
	if err != nil {
		t.Fatalf("list dismissals: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d dismissal rows, want 2", len(rows))
	}
}

func TestAPIKeyRepo_GetActiveByPrefixSkipsRevoked(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	repo := NewAPIKeyRepo(db, log)
	orgID, appID := seedOrgAndApp(t, db, "acme")
	ctx := context.Background()

	key, err := repo.Create(ctx, nil, &types.APIKey{
		OrganizationID: orgID,
		ApplicationID:  appID,
		KeyPrefix:      "br_0a1b2c3d",
		KeyHash:        "$2a$10$notarealhashnotarealhashnotarealhash",
		Label:          "test",
	})
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	active, err := repo.GetActiveByPrefix(ctx, nil, "br_0a1b2c3d")
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active keys = %d, want 1", len(active))
	}
	if active[0].Organization == nil || active[0].Organization.Name != "acme" {
		t.Fatalf("organization not preloaded: %#v", active[0])
	}

	if err := repo.Revoke(ctx, nil, key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	active, err = repo.GetActiveByPrefix(ctx, nil, "br_0a1b2c3d")
	if err != nil {
		t.Fatalf("get active after revoke: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("revoked key still resolves: %#v", active)
	}
}
