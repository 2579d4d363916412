package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents the user model stored in the database. Password and
// RefreshToken hold credential hashes; the redaction policy strips both from
// every record leaving the data-access layer.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password     string         `json:"-" gorm:"type:varchar(255);not null"`
	Name         *string        `json:"name,omitempty" gorm:"type:varchar(100)"`
	RefreshToken *string        `json:"-" gorm:"type:varchar(255)"`
	IsSuperAdmin bool           `json:"is_super_admin" gorm:"default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
