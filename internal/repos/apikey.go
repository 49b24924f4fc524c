package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

type APIKeyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, key *types.APIKey) (*types.APIKey, error)
	// GetActiveByPrefix returns all non-revoked keys sharing a prefix, with the
	// owning organization and application preloaded. Prefixes are not unique so
	// the caller still verifies the hash per candidate.
	GetActiveByPrefix(ctx context.Context, tx *gorm.DB, prefix string) ([]*types.APIKey, error)
	Revoke(ctx context.Context, tx *gorm.DB, keyID uuid.UUID) error
}

type apiKeyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAPIKeyRepo(db *gorm.DB, baseLog *logger.Logger) APIKeyRepo {
	return &apiKeyRepo{db: db, log: baseLog.With("repo", "APIKeyRepo")}
}

func (r *apiKeyRepo) Create(ctx context.Context, tx *gorm.DB, key *types.APIKey) (*types.APIKey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(key).Error; err != nil {
		return nil, err
	}
	return key, nil
}

func (r *apiKeyRepo) GetActiveByPrefix(ctx context.Context, tx *gorm.DB, prefix string) ([]*types.APIKey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.APIKey
	if prefix == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Preload("Organization").
		Preload("Application").
		Where("key_prefix = ? AND revoked_at IS NULL", prefix).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *apiKeyRepo) Revoke(ctx context.Context, tx *gorm.DB, keyID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.APIKey{}).
		Where("id = ? AND revoked_at IS NULL", keyID).
		Update("revoked_at", time.Now().UTC()).Error
}
