package usecases

import (
	"context"

	"github.com/kursio/kursio/internal/application/subscription"
	"github.com/kursio/kursio/internal/domain/user"
)

// TokenIssuer signs the session token. The token embeds the subscription
// status as of issue time.
type TokenIssuer interface {
	Issue(u *user.User) (token string, expiresIn int64, err error)
}

// LoginReconciler refreshes a user's subscription status before a token is issued.
type LoginReconciler interface {
	ReconcileUser(ctx context.Context, u *user.User) (*user.User, *subscription.Diagnostics)
}
