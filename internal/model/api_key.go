package model

import (
	"time"

	"gorm.io/gorm"
)

// ApiKey is a tenant-scoped credential. Only the SHA-256 hash of the secret
// is persisted; the secret itself is returned exactly once on creation.
type ApiKey struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	OrganizationID uint           `json:"organization_id" gorm:"index;not null"`
	Name           string         `json:"name" gorm:"type:varchar(100);not null"`
	KeyHash        string         `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}
