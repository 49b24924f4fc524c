package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

type BugReportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, report *types.BugReport) (*types.BugReport, error)
	GetByID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*types.BugReport, error)
	GetByIDForOrganization(ctx context.Context, tx *gorm.DB, orgID, reportID uuid.UUID) (*types.BugReport, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, orgID, reportID uuid.UUID, status string) error
	// UpdateEmbedding writes the vector and its timestamp in one statement so a
	// concurrent reader sees either no embedding or the whole vector.
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, embedding datatypes.JSON, generatedAt time.Time) error
	// ListEmbeddedByOrganization returns every embedded report of one tenant,
	// excluding the subject itself.
	ListEmbeddedByOrganization(ctx context.Context, tx *gorm.DB, orgID, excludeID uuid.UUID) ([]*types.BugReport, error)
	ListUnembedded(ctx context.Context, tx *gorm.DB, limit int) ([]*types.BugReport, error)
}

type bugReportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBugReportRepo(db *gorm.DB, baseLog *logger.Logger) BugReportRepo {
	return &bugReportRepo{db: db, log: baseLog.With("repo", "BugReportRepo")}
}

func (r *bugReportRepo) Create(ctx context.Context, tx *gorm.DB, report *types.BugReport) (*types.BugReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.Status == "" {
		report.Status = types.BugStatusNew
	}
	if err := transaction.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (r *bugReportRepo) GetByID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*types.BugReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var report types.BugReport
	if err := transaction.WithContext(ctx).
		Where("id = ?", reportID).
		First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *bugReportRepo) GetByIDForOrganization(ctx context.Context, tx *gorm.DB, orgID, reportID uuid.UUID) (*types.BugReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var report types.BugReport
	if err := transaction.WithContext(ctx).
		Where("id = ? AND organization_id = ?", reportID, orgID).
		First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *bugReportRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, orgID, reportID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.BugReport{}).
		Where("id = ? AND organization_id = ?", reportID, orgID).
		Update("status", status).Error
}

func (r *bugReportRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, embedding datatypes.JSON, generatedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.BugReport{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"embedding":              embedding,
			"embedding_generated_at": generatedAt,
		}).Error
}

func (r *bugReportRepo) ListEmbeddedByOrganization(ctx context.Context, tx *gorm.DB, orgID, excludeID uuid.UUID) ([]*types.BugReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BugReport
	if err := transaction.WithContext(ctx).
		Where("organization_id = ? AND id <> ? AND embedding IS NOT NULL", orgID, excludeID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *bugReportRepo) ListUnembedded(ctx context.Context, tx *gorm.DB, limit int) ([]*types.BugReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).
		Where("embedding IS NULL").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var results []*types.BugReport
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
