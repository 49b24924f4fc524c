package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BugReportMessage is one chat message appended to a report by the dashboard
// collaboration widget.
type BugReportMessage struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BugReportID uuid.UUID  `gorm:"type:uuid;not null;index" json:"bug_report_id"`
	BugReport   *BugReport `gorm:"constraint:OnDelete:CASCADE;foreignKey:BugReportID;references:ID" json:"bug_report,omitempty"`
	AuthorName  string     `gorm:"column:author_name;not null" json:"author_name"`
	Body        string     `gorm:"column:body;not null" json:"body"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BugReportMessage) TableName() string { return "bug_report_message" }
