package usecases

import (
	"context"
	"fmt"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
	"github.com/kursio/kursio/internal/shared/utils"
)

type CheckoutConfig struct {
	SubscriptionPriceID string
	SuccessURL          string
	CancelURL           string
}

type CreateCheckoutSessionCommand struct {
	UserID string `json:"-" validate:"required"`
	// Mode is "subscription" (default) or "payment" for a one-off e-book.
	Mode    string `json:"mode" validate:"omitempty,oneof=subscription payment"`
	PriceID string `json:"priceId" validate:"omitempty,startswith=price_"`
}

type CreateCheckoutSessionResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckoutSessionUseCase starts a hosted checkout. The billing
// customer is created on first use and bound to the user for life.
type CreateCheckoutSessionUseCase struct {
	userRepo user.Repository
	provider billing.Provider
	cfg      CheckoutConfig
	logger   logger.Interface
}

func NewCreateCheckoutSessionUseCase(
	userRepo user.Repository,
	provider billing.Provider,
	cfg CheckoutConfig,
	logger logger.Interface,
) *CreateCheckoutSessionUseCase {
	return &CreateCheckoutSessionUseCase{
		userRepo: userRepo,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

func (uc *CreateCheckoutSessionUseCase) Execute(ctx context.Context, cmd CreateCheckoutSessionCommand) (*CreateCheckoutSessionResult, error) {
	if cmd.Mode == "" {
		cmd.Mode = billing.ModeSubscription
	}
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}
	if cmd.Mode == billing.ModePayment && cmd.PriceID == "" {
		return nil, errors.NewValidationError("Validation failed", "priceId is required for one-off purchases")
	}

	u, err := uc.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, errors.NewNotFoundError("user not found")
	}

	if cmd.Mode == billing.ModeSubscription && u.IsSubscribed() {
		return nil, errors.NewConflictError("user already has an active subscription")
	}

	customerID, err := EnsureCustomer(ctx, uc.userRepo, uc.provider, u, uc.logger)
	if err != nil {
		return nil, err
	}

	priceID := cmd.PriceID
	if cmd.Mode == billing.ModeSubscription && priceID == "" {
		priceID = uc.cfg.SubscriptionPriceID
	}

	session, err := uc.provider.CreateCheckoutSession(ctx, billing.CreateCheckoutParams{
		CustomerID:        customerID,
		Mode:              cmd.Mode,
		PriceID:           priceID,
		ClientReferenceID: u.ID(),
		SuccessURL:        uc.cfg.SuccessURL,
		CancelURL:         uc.cfg.CancelURL,
		Metadata:          map[string]string{billing.MetadataUserID: u.ID()},
	})
	if err != nil {
		uc.logger.Errorw("failed to create checkout session", "user_id", u.ID(), "customer_id", customerID, "error", err)
		return nil, errors.NewBillingProviderError("failed to create checkout session", err)
	}

	uc.logger.Infow("checkout session created", "user_id", u.ID(), "session_id", session.ID, "mode", cmd.Mode)
	return &CreateCheckoutSessionResult{SessionID: session.ID, URL: session.URL}, nil
}

// EnsureCustomer returns the user's billing customer id, creating and
// persisting one on first use.
func EnsureCustomer(ctx context.Context, repo user.Repository, provider billing.Provider, u *user.User, log logger.Interface) (string, error) {
	if u.HasStripeCustomer() {
		return u.StripeCustomerID(), nil
	}

	customer, err := provider.CreateCustomer(ctx, billing.CreateCustomerParams{
		Email:  u.Email().String(),
		Name:   u.Name().String(),
		UserID: u.ID(),
	})
	if err != nil {
		log.Errorw("failed to create billing customer", "user_id", u.ID(), "error", err)
		return "", errors.NewBillingProviderError("failed to create billing customer", err)
	}

	if err := u.LinkStripeCustomer(customer.ID); err != nil {
		return "", fmt.Errorf("failed to link billing customer: %w", err)
	}
	if err := repo.SetStripeCustomerID(ctx, u.ID(), customer.ID); err != nil {
		// the customer exists at the provider now; the webhook links it by metadata if this write is lost
		log.Errorw("failed to persist billing customer id", "user_id", u.ID(), "customer_id", customer.ID, "error", err)
		return "", errors.NewPersistenceError("failed to save billing customer", err)
	}

	log.Infow("billing customer created", "user_id", u.ID(), "customer_id", customer.ID)
	return customer.ID, nil
}
