package model

import (
	"time"

	"gorm.io/gorm"
)

// Subscription mirrors the billing provider's state for an organization.
// Reconciliation with the provider happens elsewhere; here it is just
// another tenant-scoped resource flowing through the pipeline.
type Subscription struct {
	ID                   uint           `json:"id" gorm:"primaryKey"`
	OrganizationID       uint           `json:"organization_id" gorm:"index;not null"`
	StripeCustomerID     string         `json:"stripe_customer_id" gorm:"type:varchar(100)"`
	StripeSubscriptionID string         `json:"stripe_subscription_id" gorm:"type:varchar(100);index"`
	Status               string         `json:"status" gorm:"type:varchar(30)"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}
