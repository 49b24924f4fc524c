package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	SuggestionTypeDuplicate = "duplicate"
	SuggestionTypeRelated   = "related"
)

// SuggestionDismissal suppresses one (subject, suggested, type) similarity
// pair permanently. Rows are only ever created and queried.
type SuggestionDismissal struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BugReportID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_dismissal_pair_type" json:"bug_report_id"`
	BugReport            *BugReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:BugReportID;references:ID" json:"bug_report,omitempty"`
	SuggestedBugReportID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_dismissal_pair_type" json:"suggested_bug_report_id"`
	SuggestionType       string     `gorm:"column:suggestion_type;not null;uniqueIndex:idx_dismissal_pair_type" json:"suggestion_type"`
	DismissedByUserID    *uuid.UUID `gorm:"type:uuid;column:dismissed_by_user_id" json:"dismissed_by_user_id,omitempty"`
	CreatedAt            time.Time  `gorm:"not null" json:"created_at"`
}

func (SuggestionDismissal) TableName() string { return "suggestion_dismissal" }
