package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

var ErrInvalidStatus = errors.New("invalid bug report status")

var validStatuses = map[string]bool{
	types.BugStatusNew:        true,
	types.BugStatusSeen:       true,
	types.BugStatusInProgress: true,
	types.BugStatusResolved:   true,
	types.BugStatusWontFix:    true,
}

// ReportService is the staff read/triage surface over stored reports.
type ReportService interface {
	GetForOrganization(ctx context.Context, orgID, reportID uuid.UUID) (*types.BugReport, error)
	UpdateStatus(ctx context.Context, orgID, reportID uuid.UUID, status string) (*types.BugReport, error)
}

type reportService struct {
	db            *gorm.DB
	log           *logger.Logger
	bugReportRepo repos.BugReportRepo
}

func NewReportService(db *gorm.DB, baseLog *logger.Logger, bugReportRepo repos.BugReportRepo) ReportService {
	return &reportService{
		db:            db,
		log:           baseLog.With("service", "ReportService"),
		bugReportRepo: bugReportRepo,
	}
}

func (s *reportService) GetForOrganization(ctx context.Context, orgID, reportID uuid.UUID) (*types.BugReport, error) {
	report, err := s.bugReportRepo.GetByIDForOrganization(ctx, nil, orgID, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("load bug report: %w", err)
	}
	return report, nil
}

func (s *reportService) UpdateStatus(ctx context.Context, orgID, reportID uuid.UUID, status string) (*types.BugReport, error) {
	if !validStatuses[status] {
		return nil, ErrInvalidStatus
	}
	if _, err := s.GetForOrganization(ctx, orgID, reportID); err != nil {
		return nil, err
	}
	if err := s.bugReportRepo.UpdateStatus(ctx, nil, orgID, reportID, status); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return s.GetForOrganization(ctx, orgID, reportID)
}
