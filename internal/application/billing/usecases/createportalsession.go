package usecases

import (
	"context"
	"fmt"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

type CreatePortalSessionResult struct {
	URL string `json:"url"`
}

type CreatePortalSessionUseCase struct {
	userRepo  user.Repository
	provider  billing.Provider
	returnURL string
	logger    logger.Interface
}

func NewCreatePortalSessionUseCase(userRepo user.Repository, provider billing.Provider, returnURL string, logger logger.Interface) *CreatePortalSessionUseCase {
	return &CreatePortalSessionUseCase{
		userRepo:  userRepo,
		provider:  provider,
		returnURL: returnURL,
		logger:    logger,
	}
}

func (uc *CreatePortalSessionUseCase) Execute(ctx context.Context, userID string) (*CreatePortalSessionResult, error) {
	u, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, errors.NewNotFoundError("user not found")
	}
	if !u.HasStripeCustomer() {
		return nil, errors.NewBadRequestError("no billing account", "start a checkout first")
	}

	url, err := uc.provider.CreatePortalSession(ctx, u.StripeCustomerID(), uc.returnURL)
	if err != nil {
		uc.logger.Errorw("failed to create billing portal session", "user_id", userID, "error", err)
		return nil, errors.NewBillingProviderError("failed to create billing portal session", err)
	}
	return &CreatePortalSessionResult{URL: url}, nil
}
