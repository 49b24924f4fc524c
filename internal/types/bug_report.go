package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BugStatusNew        = "new"
	BugStatusSeen       = "seen"
	BugStatusInProgress = "in_progress"
	BugStatusResolved   = "resolved"
	BugStatusWontFix    = "wont_fix"
)

// StoredAttachment is the persisted shape of one report artifact. Inline data
// URIs and pre-hosted URLs are both resolved to this form before the row is
// written, so nothing downstream re-inspects the origin.
type StoredAttachment struct {
	Filename string `json:"filename"`
	Filetype string `json:"filetype"`
	Filesize int64  `json:"filesize"`
	URL      string `json:"url"`
}

type BugReport struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrganizationID;references:ID" json:"organization,omitempty"`
	ApplicationID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"application_id"`
	Application    *Application  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ApplicationID;references:ID" json:"application,omitempty"`

	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description;not null" json:"description"`
	Category    string `gorm:"column:category" json:"category"`
	PageURL     string `gorm:"column:page_url;not null" json:"page_url"`
	Status      string `gorm:"column:status;not null;default:'new'" json:"status"`

	ScreenshotURL *string        `gorm:"column:screenshot_url" json:"screenshot_url"`
	Attachments   datatypes.JSON `gorm:"type:jsonb;column:attachments" json:"attachments"`
	Metadata      datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`

	Embedding            datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"-"`
	EmbeddingGeneratedAt *time.Time     `gorm:"column:embedding_generated_at" json:"embedding_generated_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BugReport) TableName() string { return "bug_report" }
