package subscription

import (
	"context"

	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
)

// Origins of a status change.
const (
	OriginReconcile = "reconcile"
	OriginWebhook   = "webhook"
)

// StatusChange is emitted once a new subscription status has been persisted.
type StatusChange struct {
	UserID         string
	PreviousStatus vo.SubscriptionStatus
	Status         vo.SubscriptionStatus
	Origin         string
	EventID        string
}

// StatusNotifier fans status changes out to other consumers. Failures never
// roll back the write that produced the change.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, change StatusChange) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyStatusChange(context.Context, StatusChange) error { return nil }
