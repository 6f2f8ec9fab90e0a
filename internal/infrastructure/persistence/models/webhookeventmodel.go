package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEventModel keeps one row per processed billing webhook delivery.
type WebhookEventModel struct {
	ID         uint           `gorm:"primaryKey"`
	EventID    string         `gorm:"size:255;not null;index"`
	EventType  string         `gorm:"size:100;not null;index"`
	UserID     *string        `gorm:"size:36;index"`
	CustomerID *string        `gorm:"size:64"`
	Outcome    string         `gorm:"size:20;not null;index"`
	Detail     string         `gorm:"size:500"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt time.Time      `gorm:"not null;index"`
}

func (WebhookEventModel) TableName() string {
	return "webhook_events"
}
