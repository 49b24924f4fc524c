package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

var ErrEmptyMessage = errors.New("message body is empty")

// MessageService appends and lists the collaboration messages attached to a
// report. The widget itself lives elsewhere; this is just the append surface.
type MessageService interface {
	Append(ctx context.Context, orgID, reportID uuid.UUID, authorName, body string) (*types.BugReportMessage, error)
	List(ctx context.Context, orgID, reportID uuid.UUID) ([]*types.BugReportMessage, error)
}

type messageService struct {
	db            *gorm.DB
	log           *logger.Logger
	bugReportRepo repos.BugReportRepo
	messageRepo   repos.BugReportMessageRepo
}

func NewMessageService(db *gorm.DB, baseLog *logger.Logger, bugReportRepo repos.BugReportRepo, messageRepo repos.BugReportMessageRepo) MessageService {
	return &messageService{
		db:            db,
		log:           baseLog.With("service", "MessageService"),
		bugReportRepo: bugReportRepo,
		messageRepo:   messageRepo,
	}
}

func (s *messageService) Append(ctx context.Context, orgID, reportID uuid.UUID, authorName, body string) (*types.BugReportMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.bugReportRepo.GetByIDForOrganization(ctx, nil, orgID, reportID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("load bug report: %w", err)
	}
	return s.messageRepo.Create(ctx, nil, &types.BugReportMessage{
		BugReportID: reportID,
		AuthorName:  strings.TrimSpace(authorName),
		Body:        body,
	})
}

func (s *messageService) List(ctx context.Context, orgID, reportID uuid.UUID) ([]*types.BugReportMessage, error) {
	if _, err := s.bugReportRepo.GetByIDForOrganization(ctx, nil, orgID, reportID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("load bug report: %w", err)
	}
	return s.messageRepo.ListByBugReport(ctx, nil, reportID)
}
