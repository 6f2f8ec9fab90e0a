// Package payment adapts the Stripe API to the billing ports.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/kursio/kursio/internal/domain/billing"
	apperrors "github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

// StripeConfig is the subset of configuration the provider needs.
type StripeConfig struct {
	SecretKey string
	ListLimit int64
	Timeout   time.Duration
}

// subscriptionLister abstracts subscription.List so tests avoid the network.
type subscriptionLister func(params *stripe.SubscriptionListParams) ([]*stripe.Subscription, error)

// StripeProvider implements billing.Provider on top of stripe-go.
type StripeProvider struct {
	listLimit int64
	timeout   time.Duration
	logger    logger.Interface

	createCustomer        func(params *stripe.CustomerParams) (*stripe.Customer, error)
	listSubscriptions     subscriptionLister
	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

func NewStripeProvider(cfg StripeConfig, log logger.Interface) *StripeProvider {
	stripe.Key = strings.TrimSpace(cfg.SecretKey)

	limit := cfg.ListLimit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &StripeProvider{
		listLimit:             limit,
		timeout:               timeout,
		logger:                log,
		createCustomer:        customer.New,
		listSubscriptions:     listAllSubscriptions,
		createCheckoutSession: checkoutsession.New,
		createPortalSession:   portalsession.New,
	}
}

func listAllSubscriptions(params *stripe.SubscriptionListParams) ([]*stripe.Subscription, error) {
	it := subscription.List(params)
	var out []*stripe.Subscription
	for it.Next() {
		out = append(out, it.Subscription())
	}
	return out, it.Err()
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, in billing.CreateCustomerParams) (*billing.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.CustomerParams{
		Email: stripe.String(in.Email),
		Name:  stripe.String(in.Name),
	}
	params.Context = ctx
	params.AddMetadata(billing.MetadataUserID, in.UserID)
	// one customer per user even if the call is retried
	params.SetIdempotencyKey("customer-" + in.UserID)

	c, err := p.createCustomer(params)
	if err != nil {
		return nil, p.wrap("create customer", err)
	}
	return &billing.Customer{ID: c.ID, Email: c.Email}, nil
}

// ListSubscriptions returns the customer's subscriptions in every status.
// It is one list read; the iterator follows has_more, so a live
// subscription behind a page of expired ones is still returned.
func (p *StripeProvider) ListSubscriptions(ctx context.Context, customerID string) ([]billing.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(p.listLimit)

	subs, err := p.listSubscriptions(params)
	if err != nil {
		return nil, p.wrap("list subscriptions", err)
	}

	out := make([]billing.Subscription, 0, len(subs))
	for _, s := range subs {
		if s == nil {
			continue
		}
		out = append(out, toSubscription(s))
	}
	return out, nil
}

func toSubscription(s *stripe.Subscription) billing.Subscription {
	sub := billing.Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	if s.Items != nil {
		var periodEnd int64
		for _, item := range s.Items.Data {
			if item == nil {
				continue
			}
			if item.CurrentPeriodEnd > periodEnd {
				periodEnd = item.CurrentPeriodEnd
			}
			if item.Price != nil && item.Price.ID != "" {
				sub.PriceIDs = append(sub.PriceIDs, item.Price.ID)
			}
		}
		if periodEnd > 0 {
			sub.CurrentPeriodEnd = time.Unix(periodEnd, 0).UTC()
		}
	}
	return sub
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in billing.CreateCheckoutParams) (*billing.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(in.Mode),
		Customer:          stripe.String(in.CustomerID),
		ClientReferenceID: stripe.String(in.ClientReferenceID),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: in.Metadata,
	}
	if in.Mode == billing.ModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: in.Metadata,
		}
	}
	params.Context = ctx

	s, err := p.createCheckoutSession(params)
	if err != nil {
		return nil, p.wrap("create checkout session", err)
	}
	if s == nil || strings.TrimSpace(s.URL) == "" {
		return nil, apperrors.NewBillingProviderError("checkout session has no URL", nil)
	}

	out := &billing.CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		Mode:              string(s.Mode),
		ClientReferenceID: s.ClientReferenceID,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := p.createPortalSession(params)
	if err != nil {
		return "", p.wrap("create portal session", err)
	}
	return s.URL, nil
}

func (p *StripeProvider) wrap(op string, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		p.logger.Warnw("stripe request failed",
			"operation", op,
			"type", serr.Type,
			"code", serr.Code,
			"status", serr.HTTPStatusCode,
			"request_id", serr.RequestID,
		)
		return apperrors.NewBillingProviderError(fmt.Sprintf("stripe %s failed: %s", op, serr.Msg), err)
	}
	p.logger.Warnw("stripe request failed", "operation", op, "error", err)
	return apperrors.NewBillingProviderError(fmt.Sprintf("stripe %s failed", op), err)
}
