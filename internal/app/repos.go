package app

import (
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
)

type Repos struct {
	Organization        repos.OrganizationRepo
	Application         repos.ApplicationRepo
	APIKey              repos.APIKeyRepo
	BugReport           repos.BugReportRepo
	SuggestionDismissal repos.SuggestionDismissalRepo
	BugReportMessage    repos.BugReportMessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Organization:        repos.NewOrganizationRepo(db, log),
		Application:         repos.NewApplicationRepo(db, log),
		APIKey:              repos.NewAPIKeyRepo(db, log),
		BugReport:           repos.NewBugReportRepo(db, log),
		SuggestionDismissal: repos.NewSuggestionDismissalRepo(db, log),
		BugReportMessage:    repos.NewBugReportMessageRepo(db, log),
	}
}
