package handlers

import (
	"context"

	billingUsecases "github.com/kursio/kursio/internal/application/billing/usecases"
	"github.com/kursio/kursio/internal/application/subscription"
	subUsecases "github.com/kursio/kursio/internal/application/subscription/usecases"
	"github.com/kursio/kursio/internal/application/user/dto"
	userUsecases "github.com/kursio/kursio/internal/application/user/usecases"
	"github.com/kursio/kursio/internal/domain/billing"
)

// Use case interfaces consumed by the handlers in this package.

type registerUseCase interface {
	Execute(ctx context.Context, cmd userUsecases.RegisterWithPasswordCommand) (*dto.UserDTO, error)
}

type loginUseCase interface {
	Execute(ctx context.Context, cmd userUsecases.LoginWithPasswordCommand) (*userUsecases.LoginWithPasswordResult, error)
}

type getProfileUseCase interface {
	Execute(ctx context.Context, userID string) (*dto.UserDTO, error)
}

type getSubscriptionStatusUseCase interface {
	Execute(ctx context.Context, query subUsecases.GetSubscriptionStatusQuery) (*subUsecases.SubscriptionStatusResult, error)
}

type forceCheckSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd subUsecases.ForceCheckSubscriptionCommand) (*subUsecases.ForceCheckSubscriptionResult, error)
}

type createCheckoutSessionUseCase interface {
	Execute(ctx context.Context, cmd billingUsecases.CreateCheckoutSessionCommand) (*billingUsecases.CreateCheckoutSessionResult, error)
}

type createPortalSessionUseCase interface {
	Execute(ctx context.Context, userID string) (*billingUsecases.CreatePortalSessionResult, error)
}

type webhookProcessor interface {
	Process(ctx context.Context, ev *billing.Event) *subscription.WebhookResult
}
