package services

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/clients/gcp"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/datauri"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

// ValidationError reports which required submission fields were missing. It is
// the only submission failure the caller can fix themselves.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.MissingFields, ", "))
}

// SubmittedAttachment is one artifact as it arrives from the SDK: either an
// inline base64 data URI or an already-hosted URL.
type SubmittedAttachment struct {
	Filename string `json:"filename"`
	Filetype string `json:"filetype"`
	Filesize int64  `json:"filesize"`
	DataURL  string `json:"data_url,omitempty"`
	URL      string `json:"url,omitempty"`
}

type SubmitBugReportInput struct {
	Title             string
	Description       string
	PageURL           string
	Category          string
	ReporterName      string
	ReporterEmail     string
	ScreenshotDataURL string
	Attachments       []SubmittedAttachment
	ConsoleLogs       json.RawMessage
	NetworkTrace      json.RawMessage
	BrowserInfo       json.RawMessage
	SystemInfo        json.RawMessage
	Metadata          map[string]any
}

// IngestionService turns one untrusted submission into one durable BugReport.
// Screenshot and attachment uploads are best-effort per artifact; only the row
// insert can fail the submission, and enrichment is never awaited.
type IngestionService interface {
	Submit(ctx context.Context, tenant *requestdata.TenantContext, input SubmitBugReportInput) (*types.BugReport, error)
}

type ingestionService struct {
	db             *gorm.DB
	log            *logger.Logger
	bugReportRepo  repos.BugReportRepo
	bucket         gcp.BucketService
	enrichment     EnrichmentService
	maxAttachments int
}

func NewIngestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bugReportRepo repos.BugReportRepo,
	bucket gcp.BucketService,
	enrichment EnrichmentService,
	maxAttachments int,
) IngestionService {
	if maxAttachments <= 0 {
		maxAttachments = 10
	}
	return &ingestionService{
		db:             db,
		log:            baseLog.With("service", "IngestionService"),
		bugReportRepo:  bugReportRepo,
		bucket:         bucket,
		enrichment:     enrichment,
		maxAttachments: maxAttachments,
	}
}

func (s *ingestionService) Submit(ctx context.Context, tenant *requestdata.TenantContext, input SubmitBugReportInput) (*types.BugReport, error) {
	if tenant == nil {
		return nil, fmt.Errorf("missing tenant context")
	}

	// Step 1: validate. Fails before any side effect.
	var missing []string
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(input.PageURL) == "" {
		missing = append(missing, "page_url")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{MissingFields: missing}
	}

	reportID := uuid.New()
	slog := s.log.With("organization_id", tenant.OrganizationID, "application_id", tenant.ApplicationID, "bug_report_id", reportID)

	// Step 2: screenshot, best effort. A report without its screenshot beats
	// no report at all.
	var screenshotURL *string
	if strings.TrimSpace(input.ScreenshotDataURL) != "" {
		if url, err := s.uploadScreenshot(ctx, tenant, reportID, input.ScreenshotDataURL); err != nil {
			slog.Warn("screenshot upload failed, continuing without it", "error", err)
		} else {
			screenshotURL = &url
		}
	}

	// Step 3: attachments, best effort per item.
	storedAttachments := s.resolveAttachments(ctx, slog, tenant, reportID, input.Attachments)

	var attachmentsJSON datatypes.JSON
	if len(storedAttachments) > 0 {
		b, err := json.Marshal(storedAttachments)
		if err != nil {
			slog.Warn("attachment list marshal failed, dropping attachments", "error", err)
		} else {
			attachmentsJSON = datatypes.JSON(b)
		}
	}

	metadataJSON, err := buildMetadataBag(input)
	if err != nil {
		slog.Warn("metadata bag marshal failed, storing empty bag", "error", err)
		metadataJSON = datatypes.JSON([]byte(`{}`))
	}

	// Step 4: persist. The only step whose failure fails the submission.
	report, err := s.bugReportRepo.Create(ctx, nil, &types.BugReport{
		ID:             reportID,
		OrganizationID: tenant.OrganizationID,
		ApplicationID:  tenant.ApplicationID,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Category:       strings.TrimSpace(input.Category),
		PageURL:        strings.TrimSpace(input.PageURL),
		Status:         types.BugStatusNew,
		ScreenshotURL:  screenshotURL,
		Attachments:    attachmentsJSON,
		Metadata:       metadataJSON,
	})
	if err != nil {
		slog.Error("bug report persist failed", "error", err)
		return nil, fmt.Errorf("persist bug report: %w", err)
	}

	// Step 5: schedule enrichment, fire and forget. The response never waits.
	s.enrichment.Schedule(report.ID, report.Title, report.Description)

	slog.Info("bug report ingested",
		"attachments", len(storedAttachments),
		"has_screenshot", screenshotURL != nil)
	return report, nil
}

func (s *ingestionService) uploadScreenshot(ctx context.Context, tenant *requestdata.TenantContext, reportID uuid.UUID, dataURL string) (string, error) {
	decoded, err := datauri.Parse(dataURL)
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	key := fmt.Sprintf("orgs/%s/apps/%s/bug_reports/%s/screenshot_%d%s",
		tenant.OrganizationID, tenant.ApplicationID, reportID, time.Now().UnixNano(), extensionForMime(decoded.MimeType))
	url, err := s.bucket.UploadBytes(ctx, key, decoded.MimeType, decoded.Data)
	if err != nil {
		return "", fmt.Errorf("upload screenshot: %w", err)
	}
	return url, nil
}

// resolveAttachments turns submitted attachments into stored ones, preserving
// relative order. Each item is independent: a bad entry is dropped without
// touching its neighbours. Uploads run concurrently.
func (s *ingestionService) resolveAttachments(ctx context.Context, slog *logger.Logger, tenant *requestdata.TenantContext, reportID uuid.UUID, submitted []SubmittedAttachment) []types.StoredAttachment {
	if len(submitted) == 0 {
		return nil
	}
	if len(submitted) > s.maxAttachments {
		slog.Warn("attachment list truncated", "submitted", len(submitted), "max", s.maxAttachments)
		submitted = submitted[:s.maxAttachments]
	}

	resolved := make([]*types.StoredAttachment, len(submitted))
	g, gctx := errgroup.WithContext(ctx)
	for i, att := range submitted {
		g.Go(func() error {
			stored := s.resolveOneAttachment(gctx, slog, tenant, reportID, i, att)
			resolved[i] = stored
			return nil // failures are absorbed per item
		})
	}
	_ = g.Wait()

	out := make([]types.StoredAttachment, 0, len(resolved))
	for _, stored := range resolved {
		if stored != nil {
			out = append(out, *stored)
		}
	}
	return out
}

func (s *ingestionService) resolveOneAttachment(ctx context.Context, slog *logger.Logger, tenant *requestdata.TenantContext, reportID uuid.UUID, index int, att SubmittedAttachment) *types.StoredAttachment {
	switch {
	case strings.TrimSpace(att.URL) != "":
		// Already hosted; pass through unchanged.
		return &types.StoredAttachment{
			Filename: att.Filename,
			Filetype: att.Filetype,
			Filesize: att.Filesize,
			URL:      strings.TrimSpace(att.URL),
		}
	case strings.TrimSpace(att.DataURL) != "":
		decoded, err := datauri.Parse(att.DataURL)
		if err != nil {
			slog.Warn("attachment decode failed, dropping it", "index", index, "filename", att.Filename, "error", err)
			return nil
		}
		filetype := att.Filetype
		if filetype == "" {
			filetype = decoded.MimeType
		}
		key := fmt.Sprintf("orgs/%s/apps/%s/bug_reports/%s/attachments/%d_%s",
			tenant.OrganizationID, tenant.ApplicationID, reportID, time.Now().UnixNano(), sanitizeFilename(att.Filename, decoded.MimeType))
		url, err := s.bucket.UploadBytes(ctx, key, filetype, decoded.Data)
		if err != nil {
			slog.Warn("attachment upload failed, dropping it", "index", index, "filename", att.Filename, "error", err)
			return nil
		}
		return &types.StoredAttachment{
			Filename: att.Filename,
			Filetype: filetype,
			Filesize: int64(len(decoded.Data)),
			URL:      url,
		}
	default:
		// Neither inline payload nor hosted URL: nothing to store.
		slog.Debug("attachment has no payload or url, dropping it", "index", index, "filename", att.Filename)
		return nil
	}
}

func buildMetadataBag(input SubmitBugReportInput) (datatypes.JSON, error) {
	bag := map[string]any{}
	for k, v := range input.Metadata {
		bag[k] = v
	}
	if input.ReporterName != "" {
		bag["reporter_name"] = input.ReporterName
	}
	if input.ReporterEmail != "" {
		bag["reporter_email"] = input.ReporterEmail
	}
	if len(input.ConsoleLogs) > 0 {
		bag["console_logs"] = json.RawMessage(input.ConsoleLogs)
	}
	if len(input.NetworkTrace) > 0 {
		bag["network_trace"] = json.RawMessage(input.NetworkTrace)
	}
	if len(input.BrowserInfo) > 0 {
		bag["browser_info"] = json.RawMessage(input.BrowserInfo)
	}
	if len(input.SystemInfo) > 0 {
		bag["system_info"] = json.RawMessage(input.SystemInfo)
	}
	bag["submitted_at"] = time.Now().UTC().Format(time.RFC3339)
	b, err := json.Marshal(bag)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func sanitizeFilename(filename, mimeType string) string {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return "attachment" + extensionForMime(mimeType)
	}
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
