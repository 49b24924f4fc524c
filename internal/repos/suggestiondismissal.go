package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

type SuggestionDismissalRepo interface {
	// Create inserts a dismissal; re-dismissing an already-dismissed pair is a
	// no-op success.
	Create(ctx context.Context, tx *gorm.DB, dismissal *types.SuggestionDismissal) error
	ListByBugReport(ctx context.Context, tx *gorm.DB, bugReportID uuid.UUID) ([]*types.SuggestionDismissal, error)
}

type suggestionDismissalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSuggestionDismissalRepo(db *gorm.DB, baseLog *logger.Logger) SuggestionDismissalRepo {
	return &suggestionDismissalRepo{db: db, log: baseLog.With("repo", "SuggestionDismissalRepo")}
}

func (r *suggestionDismissalRepo) Create(ctx context.Context, tx *gorm.DB, dismissal *types.SuggestionDismissal) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if dismissal.ID == uuid.Nil {
		dismissal.ID = uuid.New()
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "bug_report_id"},
				{Name: "suggested_bug_report_id"},
				{Name: "suggestion_type"},
			},
			DoNothing: true,
		}).
		Create(dismissal).Error
}

func (r *suggestionDismissalRepo) ListByBugReport(ctx context.Context, tx *gorm.DB, bugReportID uuid.UUID) ([]*types.SuggestionDismissal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SuggestionDismissal
	if err := transaction.WithContext(ctx).
		Where("bug_report_id = ?", bugReportID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
