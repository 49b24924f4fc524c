package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
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

func seedTenant(t *testing.T, db *gorm.DB, orgName, appName string) *requestdata.TenantContext {
	t.Helper()
	log := logger.NewNop()
	org, err := repos.NewOrganizationRepo(db, log).Create(context.Background(), nil, &types.Organization{
		Name: orgName,
		Slug: strings.ToLower(strings.ReplaceAll(orgName, " ", "-")),
	})
	if err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	app, err := repos.NewApplicationRepo(db, log).Create(context.Background(), nil, &types.Application{
		OrganizationID: org.ID,
		Name:           appName,
		Platform:       "web",
	})
	if err != nil {
		t.Fatalf("seed application: %v", err)
	}
	return &requestdata.TenantContext{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		ApplicationID:    app.ID,
		ApplicationName:  app.Name,
		APIKeyID:         uuid.New(),
	}
}

// fakeBucket records uploads in memory. Keys containing failSubstring fail.
type fakeBucket struct {
	mu            sync.Mutex
	uploads       map[string][]byte
	failSubstring string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: map[string][]byte{}}
}

func (b *fakeBucket) UploadBytes(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if b.failSubstring != "" && strings.Contains(key, b.failSubstring) {
		return "", fmt.Errorf("simulated upload failure for %q", key)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads[key] = data
	return b.GetPublicURL(key), nil
}

func (b *fakeBucket) UploadFile(ctx context.Context, key, contentType string, file io.Reader) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return b.UploadBytes(ctx, key, contentType, data)
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.uploads, key)
	return nil
}

func (b *fakeBucket) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (b *fakeBucket) uploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads)
}

// fakeEmbedder returns a fixed vector, or fails when failErr is set.
type fakeEmbedder struct {
	mu      sync.Mutex
	vector  []float32
	failErr error
	calls   []string
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()
	if e.failErr != nil {
		return nil, e.failErr
	}
	out := make([]float32, len(e.vector))
	copy(out, e.vector)
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int { return len(e.vector) }

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// stubEnrichment records Schedule calls without doing any work.
type stubEnrichment struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
}

func (s *stubEnrichment) Schedule(bugID uuid.UUID, title, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, bugID)
}

func (s *stubEnrichment) Enrich(ctx context.Context, bugID uuid.UUID, title, description string) error {
	return nil
}

func (s *stubEnrichment) Start(ctx context.Context) {}
func (s *stubEnrichment) Close()                    {}

func (s *stubEnrichment) scheduledIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, len(s.scheduled))
	copy(out, s.scheduled)
	return out
}

func pngDataURI() string {
	// 1x1 transparent PNG.
	return "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
}
