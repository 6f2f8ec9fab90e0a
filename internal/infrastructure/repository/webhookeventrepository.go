package repository

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/infrastructure/persistence/models"
)

// WebhookEventRepository is the relational billing.EventLog.
type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Record(ctx context.Context, entry billing.EventLogEntry) error {
	model := &models.WebhookEventModel{
		EventID:    entry.EventID,
		EventType:  entry.EventType,
		UserID:     optional(entry.UserID),
		CustomerID: optional(entry.CustomerID),
		Outcome:    entry.Outcome,
		Detail:     truncate(entry.Detail, 500),
		ReceivedAt: entry.ReceivedAt,
	}
	if len(entry.Payload) > 0 {
		model.Payload = datatypes.JSON(entry.Payload)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record webhook event %s: %w", entry.EventID, err)
	}
	return nil
}

func (r *WebhookEventRepository) Recent(ctx context.Context, limit int) ([]billing.EventLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Order("received_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}

	entries := make([]billing.EventLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, billing.EventLogEntry{
			EventID:    row.EventID,
			EventType:  row.EventType,
			UserID:     value(row.UserID),
			CustomerID: value(row.CustomerID),
			Outcome:    row.Outcome,
			Detail:     row.Detail,
			Payload:    []byte(row.Payload),
			ReceivedAt: row.ReceivedAt,
		})
	}
	return entries, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
