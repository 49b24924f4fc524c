package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey authenticates SDK submissions. The raw key is shown to the operator
// once at creation; only the bcrypt hash is stored. KeyPrefix is the first
// characters of the raw key and exists so resolution is an indexed lookup
// instead of a full-table bcrypt scan.
type APIKey struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrganizationID;references:ID" json:"organization,omitempty"`
	ApplicationID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"application_id"`
	Application    *Application  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ApplicationID;references:ID" json:"application,omitempty"`
	KeyPrefix      string        `gorm:"column:key_prefix;not null;index" json:"key_prefix"`
	KeyHash        string        `gorm:"column:key_hash;not null" json:"-"`
	Label          string        `gorm:"column:label" json:"label"`
	RevokedAt      *time.Time    `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (APIKey) TableName() string { return "api_key" }
