package subscription

import (
	"context"
	"fmt"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/domain/user"
	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
	"github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

// Source says where the reconciled status came from.
type Source string

const (
	SourceNoCustomer Source = "no_customer"
	SourceBilling    Source = "billing_provider"
	// SourceCached means the provider could not be read and the stored
	// status was returned untouched.
	SourceCached Source = "cached"
)

// Reconcile outcomes reported to metrics.
const (
	outcomeUnchanged    = "unchanged"
	outcomeUpdated      = "updated"
	outcomeBillingError = "billing_error"
	outcomePersistError = "persist_error"
)

// Diagnostics describes what a reconciliation run did. BillingErr and
// PersistErr are soft failures: the caller still gets a usable user.
type Diagnostics struct {
	UserID           string
	PreviousStatus   vo.SubscriptionStatus
	Status           vo.SubscriptionStatus
	Source           Source
	Changed          bool
	Written          bool
	LiveSubscription *billing.Subscription
	BillingErr       error
	PersistErr       error
}

// Degraded reports whether the result may not reflect the provider.
func (d *Diagnostics) Degraded() bool {
	return d.BillingErr != nil || d.PersistErr != nil
}

// Reconciler brings a user's cached subscription status in line with the
// billing provider. Each run does at most one provider read and at most one
// datastore write.
type Reconciler struct {
	users    user.Repository
	billing  billing.Provider
	policy   StatusPolicy
	metrics  MetricsRecorder
	notifier StatusNotifier
	logger   logger.Interface
}

type ReconcilerOption func(*Reconciler)

func WithStatusPolicy(p StatusPolicy) ReconcilerOption {
	return func(r *Reconciler) { r.policy = p }
}

func WithMetrics(m MetricsRecorder) ReconcilerOption {
	return func(r *Reconciler) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithStatusNotifier publishes every persisted status change.
func WithStatusNotifier(n StatusNotifier) ReconcilerOption {
	return func(r *Reconciler) {
		if n != nil {
			r.notifier = n
		}
	}
}

func NewReconciler(users user.Repository, provider billing.Provider, log logger.Interface, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		users:    users,
		billing:  provider,
		policy:   DefaultStatusPolicy(),
		metrics:  nopMetrics{},
		notifier: nopNotifier{},
		logger:   log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile loads the user and reconciles it. The only error returned is a
// failed or empty lookup; provider and write failures land in Diagnostics.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (*user.User, *Diagnostics, error) {
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		r.logger.Errorw("failed to load user for reconciliation", "user_id", userID, "error", err)
		return nil, nil, errors.NewPersistenceError("failed to load user", err)
	}
	if u == nil {
		return nil, nil, errors.NewNotFoundError("user not found", userID)
	}

	u, diag := r.ReconcileUser(ctx, u)
	return u, diag, nil
}

// ReconcileUser reconciles a user the caller already holds. The returned user
// is u itself, updated in memory even when the write fails.
func (r *Reconciler) ReconcileUser(ctx context.Context, u *user.User) (*user.User, *Diagnostics) {
	diag := &Diagnostics{
		UserID:         u.ID(),
		PreviousStatus: u.SubscriptionStatus(),
		Status:         u.SubscriptionStatus(),
	}

	target := vo.SubscriptionInactive
	subscriptionID := ""

	if !u.HasStripeCustomer() {
		diag.Source = SourceNoCustomer
	} else {
		subs, err := r.billing.ListSubscriptions(ctx, u.StripeCustomerID())
		if err != nil {
			diag.Source = SourceCached
			diag.BillingErr = errors.NewBillingProviderError("failed to list subscriptions", err)
			r.logger.Warnw("billing provider unavailable, serving cached subscription status",
				"user_id", u.ID(),
				"customer_id", u.StripeCustomerID(),
				"cached_status", u.SubscriptionStatus(),
				"error", err,
			)
			r.metrics.ObserveReconcile(string(diag.Source), outcomeBillingError)
			return u, diag
		}

		diag.Source = SourceBilling
		if live, ok := r.policy.FirstLive(subs); ok {
			target = vo.SubscriptionActive
			subscriptionID = live.ID
			diag.LiveSubscription = &live
		}
	}

	if !u.ApplySubscriptionStatus(target, subscriptionID) {
		r.metrics.ObserveReconcile(string(diag.Source), outcomeUnchanged)
		return u, diag
	}
	diag.Status = u.SubscriptionStatus()
	diag.Changed = diag.Status != diag.PreviousStatus

	patch := user.SubscriptionPatch{Status: target}
	if subscriptionID != "" {
		patch.StripeSubscriptionID = &subscriptionID
	}

	if err := r.users.UpdateSubscription(ctx, u.ID(), patch); err != nil {
		diag.PersistErr = errors.NewPersistenceError("failed to persist subscription status", err)
		r.logger.Errorw("failed to persist reconciled subscription status",
			"user_id", u.ID(),
			"customer_id", u.StripeCustomerID(),
			"previous_status", diag.PreviousStatus,
			"status", diag.Status,
			"error", err,
		)
		r.metrics.ObserveReconcile(string(diag.Source), outcomePersistError)
		return u, diag
	}

	diag.Written = true
	r.metrics.ObserveReconcile(string(diag.Source), outcomeUpdated)
	r.logger.Infow("subscription status reconciled",
		"user_id", u.ID(),
		"previous_status", diag.PreviousStatus,
		"status", diag.Status,
		"source", diag.Source,
	)
	if diag.Changed {
		change := StatusChange{
			UserID:         u.ID(),
			PreviousStatus: diag.PreviousStatus,
			Status:         diag.Status,
			Origin:         OriginReconcile,
		}
		if err := r.notifier.NotifyStatusChange(ctx, change); err != nil {
			r.logger.Warnw("failed to publish subscription status change", "user_id", u.ID(), "error", err)
		}
	}
	return u, diag
}

// String is used by CLI output.
func (d *Diagnostics) String() string {
	return fmt.Sprintf("user=%s %s -> %s source=%s written=%t degraded=%t",
		d.UserID, d.PreviousStatus, d.Status, d.Source, d.Written, d.Degraded())
}
