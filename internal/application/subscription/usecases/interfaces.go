package usecases

import (
	"context"

	"github.com/kursio/kursio/internal/application/subscription"
	"github.com/kursio/kursio/internal/domain/user"
)

// Reconciler is satisfied by *subscription.Reconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string) (*user.User, *subscription.Diagnostics, error)
}
