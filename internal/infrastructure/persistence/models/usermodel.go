package models

import (
	"time"

	"gorm.io/gorm"
)

// UserModel is the row shape of the users table. Billing columns are
// nullable because a customer is created lazily on first checkout.
type UserModel struct {
	ID                   string  `gorm:"primaryKey;size:36"`
	Email                string  `gorm:"uniqueIndex;not null;size:255"`
	Name                 string  `gorm:"not null;size:100"`
	PasswordHash         string  `gorm:"not null;size:255"`
	StripeCustomerID     *string `gorm:"uniqueIndex;size:64"`
	StripeSubscriptionID *string `gorm:"size:64"`
	SubscriptionStatus   string  `gorm:"not null;default:inactive;size:32;index"`
	IsAdmin              bool    `gorm:"not null;default:false"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func (u *UserModel) BeforeCreate(_ *gorm.DB) error {
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = "inactive"
	}
	return nil
}
