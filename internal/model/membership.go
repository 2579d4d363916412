package model

import (
	"time"

	"gorm.io/gorm"

	"github.com/habberrih/manara/internal/query"
)

// OrgRole is the role a user holds within an organization. OWNER is unique
// per organization and privileged above ADMIN above MEMBER.
type OrgRole string

const (
	RoleOwner  OrgRole = "OWNER"
	RoleAdmin  OrgRole = "ADMIN"
	RoleMember OrgRole = "MEMBER"
)

// Valid reports whether r is one of the known roles.
func (r OrgRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// MembershipStatus tracks the invitation state machine: PENDING moves to
// ACCEPTED only through an explicit accept by the invited user.
type MembershipStatus string

const (
	StatusPending  MembershipStatus = "PENDING"
	StatusAccepted MembershipStatus = "ACCEPTED"
)

// Membership associates a user with an organization. The composite unique
// index keeps one row per (user, organization) pair; a removed member is
// revived in place on re-invite, never duplicated.
type Membership struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	UserID         uint             `json:"user_id" gorm:"uniqueIndex:idx_membership_user_org;not null"`
	OrganizationID uint             `json:"organization_id" gorm:"uniqueIndex:idx_membership_user_org;not null"`
	Role           OrgRole          `json:"role" gorm:"type:varchar(20);not null;default:'MEMBER'"`
	Status         MembershipStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING'"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `json:"-" gorm:"index"`

	// Relations
	User         User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

// MembershipFromRecord maps a pipeline record onto the fields the
// authorization layer inspects.
func MembershipFromRecord(rec query.Record) *Membership {
	if rec == nil {
		return nil
	}
	m := &Membership{
		ID:             rec.Uint("id"),
		UserID:         rec.Uint("user_id"),
		OrganizationID: rec.Uint("organization_id"),
		Role:           OrgRole(rec.String("role")),
		Status:         MembershipStatus(rec.String("status")),
	}
	return m
}
