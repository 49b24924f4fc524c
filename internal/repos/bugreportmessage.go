package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

type BugReportMessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, message *types.BugReportMessage) (*types.BugReportMessage, error)
	ListByBugReport(ctx context.Context, tx *gorm.DB, bugReportID uuid.UUID) ([]*types.BugReportMessage, error)
}

type bugReportMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBugReportMessageRepo(db *gorm.DB, baseLog *logger.Logger) BugReportMessageRepo {
	return &bugReportMessageRepo{db: db, log: baseLog.With("repo", "BugReportMessageRepo")}
}

func (r *bugReportMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.BugReportMessage) (*types.BugReportMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (r *bugReportMessageRepo) ListByBugReport(ctx context.Context, tx *gorm.DB, bugReportID uuid.UUID) ([]*types.BugReportMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BugReportMessage
	if err := transaction.WithContext(ctx).
		Where("bug_report_id = ?", bugReportID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
