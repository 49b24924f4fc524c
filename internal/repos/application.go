package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

type ApplicationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, app *types.Application) (*types.Application, error)
	GetByID(ctx context.Context, tx *gorm.DB, appID uuid.UUID) (*types.Application, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, appIDs []uuid.UUID) ([]*types.Application, error)
}

type applicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	return &applicationRepo{db: db, log: baseLog.With("repo", "ApplicationRepo")}
}

func (r *applicationRepo) Create(ctx context.Context, tx *gorm.DB, app *types.Application) (*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

func (r *applicationRepo) GetByID(ctx context.Context, tx *gorm.DB, appID uuid.UUID) (*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var app types.Application
	if err := transaction.WithContext(ctx).
		Where("id = ?", appID).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, appIDs []uuid.UUID) ([]*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Application
	if len(appIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", appIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
