package subscription

import (
	"context"
	"time"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/domain/user"
	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
	"github.com/kursio/kursio/internal/shared/logger"
)

// WebhookResult summarises how one delivery was applied. Err is set on a
// local failure; the HTTP layer acknowledges the delivery regardless.
type WebhookResult struct {
	EventID   string
	EventType string
	UserID    string
	Outcome   string
	Detail    string
	Err       error
}

// userRefs are the identifiers a billing payload can carry, tried in order.
type userRefs struct {
	metadataUserID    string
	clientReferenceID string
	customerID        string
	email             string
}

// WebhookProcessor applies verified billing events to the user store. The
// payload is authoritative: no provider re-query happens here, and every
// handled type writes an absolute status so redelivery is harmless.
type WebhookProcessor struct {
	users    user.Repository
	events   billing.EventLog
	metrics  MetricsRecorder
	notifier StatusNotifier
	logger   logger.Interface
	now      func() time.Time
}

type WebhookOption func(*WebhookProcessor)

func WithWebhookNotifier(n StatusNotifier) WebhookOption {
	return func(p *WebhookProcessor) {
		if n != nil {
			p.notifier = n
		}
	}
}

func NewWebhookProcessor(users user.Repository, events billing.EventLog, metrics MetricsRecorder, log logger.Interface, opts ...WebhookOption) *WebhookProcessor {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	p := &WebhookProcessor{
		users:    users,
		events:   events,
		metrics:  metrics,
		notifier: nopNotifier{},
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *WebhookProcessor) Process(ctx context.Context, ev *billing.Event) *WebhookResult {
	res := &WebhookResult{EventID: ev.ID, EventType: ev.Type}

	if ev.DecodeErr != nil {
		res.Outcome, res.Err = billing.OutcomeFailed, ev.DecodeErr
		res.Detail = "payload decode failed"
		p.logger.Errorw("webhook payload could not be decoded, manual remediation needed",
			"event_id", ev.ID, "event_type", ev.Type, "error", ev.DecodeErr)
		p.metrics.ObserveWebhook(ev.Type, res.Outcome)
		p.record(ctx, ev, res)
		return res
	}

	switch ev.Type {
	case billing.EventCheckoutSessionCompleted:
		p.applyCheckout(ctx, ev.CheckoutSession, res)
	case billing.EventInvoicePaymentSucceeded:
		p.applyInvoice(ctx, ev.Invoice, res)
	case billing.EventCustomerSubscriptionDeleted:
		p.applySubscriptionDeleted(ctx, ev.Subscription, res)
	default:
		res.Outcome = billing.OutcomeIgnored
		res.Detail = "unhandled event type"
	}

	p.metrics.ObserveWebhook(ev.Type, res.Outcome)
	p.record(ctx, ev, res)
	return res
}

func (p *WebhookProcessor) applyCheckout(ctx context.Context, s *billing.CheckoutSession, res *WebhookResult) {
	if s == nil {
		res.Outcome, res.Detail = billing.OutcomeIgnored, "missing checkout session payload"
		return
	}
	if s.Mode != billing.ModeSubscription {
		// one-off e-book purchase; entitlement is not subscription based
		res.Outcome, res.Detail = billing.OutcomeIgnored, "one_time_payment"
		return
	}

	refs := userRefs{
		metadataUserID:    s.Metadata[billing.MetadataUserID],
		clientReferenceID: s.ClientReferenceID,
		customerID:        s.CustomerID,
		email:             s.CustomerEmail,
	}
	p.apply(ctx, refs, vo.SubscriptionActive, s.SubscriptionID, s.CustomerID, res)
}

func (p *WebhookProcessor) applyInvoice(ctx context.Context, inv *billing.Invoice, res *WebhookResult) {
	if inv == nil {
		res.Outcome, res.Detail = billing.OutcomeIgnored, "missing invoice payload"
		return
	}
	if inv.SubscriptionID == "" {
		res.Outcome, res.Detail = billing.OutcomeIgnored, "invoice_without_subscription"
		return
	}

	refs := userRefs{
		metadataUserID: inv.Metadata[billing.MetadataUserID],
		customerID:     inv.CustomerID,
		email:          inv.CustomerEmail,
	}
	p.apply(ctx, refs, vo.SubscriptionActive, inv.SubscriptionID, inv.CustomerID, res)
}

func (p *WebhookProcessor) applySubscriptionDeleted(ctx context.Context, sub *billing.Subscription, res *WebhookResult) {
	if sub == nil {
		res.Outcome, res.Detail = billing.OutcomeIgnored, "missing subscription payload"
		return
	}

	refs := userRefs{
		metadataUserID: sub.Metadata[billing.MetadataUserID],
		customerID:     sub.CustomerID,
	}
	p.apply(ctx, refs, vo.SubscriptionInactive, "", "", res)
}

func (p *WebhookProcessor) apply(
	ctx context.Context,
	refs userRefs,
	status vo.SubscriptionStatus,
	subscriptionID, customerID string,
	res *WebhookResult,
) {
	u, via, err := p.resolveUser(ctx, refs)
	if err != nil {
		res.Outcome, res.Err = billing.OutcomeFailed, err
		res.Detail = "user lookup failed"
		p.logger.Errorw("webhook user lookup failed",
			"event_id", res.EventID, "event_type", res.EventType, "customer_id", refs.customerID, "error", err)
		return
	}
	if u == nil {
		res.Outcome, res.Detail = billing.OutcomeUnresolved, "no user matches event identifiers"
		p.logger.Warnw("webhook event did not resolve to a user",
			"event_id", res.EventID,
			"event_type", res.EventType,
			"metadata_user_id", refs.metadataUserID,
			"client_reference_id", refs.clientReferenceID,
			"customer_id", refs.customerID,
		)
		return
	}
	res.UserID = u.ID()

	linkCustomer := false
	if customerID != "" && !u.HasStripeCustomer() {
		if err := u.LinkStripeCustomer(customerID); err == nil {
			linkCustomer = true
		}
	} else if customerID != "" && u.StripeCustomerID() != customerID {
		p.logger.Warnw("webhook customer differs from linked customer",
			"event_id", res.EventID, "user_id", u.ID(), "linked_customer_id", u.StripeCustomerID(), "event_customer_id", customerID)
	}

	previous := u.SubscriptionStatus()
	changed := u.ApplySubscriptionStatus(status, subscriptionID)
	if !changed && !linkCustomer {
		res.Outcome, res.Detail = billing.OutcomeUnchanged, "resolved via "+via
		return
	}

	patch := user.SubscriptionPatch{Status: status}
	if subscriptionID != "" {
		patch.StripeSubscriptionID = &subscriptionID
	}
	if linkCustomer {
		patch.StripeCustomerID = &customerID
	}

	if err := p.users.UpdateSubscription(ctx, u.ID(), patch); err != nil {
		res.Outcome, res.Err = billing.OutcomeFailed, err
		res.Detail = "persist failed"
		p.logger.Errorw("failed to persist webhook subscription status, manual remediation needed",
			"event_id", res.EventID,
			"event_type", res.EventType,
			"user_id", u.ID(),
			"status", status,
			"error", err,
		)
		return
	}

	res.Outcome, res.Detail = billing.OutcomeApplied, "resolved via "+via
	p.logger.Infow("webhook subscription status applied",
		"event_id", res.EventID, "event_type", res.EventType, "user_id", u.ID(), "status", status)

	if previous != status {
		change := StatusChange{
			UserID:         u.ID(),
			PreviousStatus: previous,
			Status:         status,
			Origin:         OriginWebhook,
			EventID:        res.EventID,
		}
		if err := p.notifier.NotifyStatusChange(ctx, change); err != nil {
			p.logger.Warnw("failed to publish subscription status change", "event_id", res.EventID, "user_id", u.ID(), "error", err)
		}
	}
}

// resolveUser walks the identifier chain: metadata userId, then
// client_reference_id, then the billing customer id, then the email.
func (p *WebhookProcessor) resolveUser(ctx context.Context, refs userRefs) (*user.User, string, error) {
	for _, step := range []struct {
		via    string
		key    string
		lookup func(context.Context, string) (*user.User, error)
	}{
		{"metadata", refs.metadataUserID, p.users.GetByID},
		{"client_reference_id", refs.clientReferenceID, p.users.GetByID},
		{"customer", refs.customerID, p.users.GetByStripeCustomerID},
		{"email", vo.NormalizeEmail(refs.email), p.users.GetByEmail},
	} {
		if step.key == "" {
			continue
		}
		u, err := step.lookup(ctx, step.key)
		if err != nil {
			return nil, "", err
		}
		if u != nil {
			return u, step.via, nil
		}
	}
	return nil, "", nil
}

func (p *WebhookProcessor) record(ctx context.Context, ev *billing.Event, res *WebhookResult) {
	if p.events == nil {
		return
	}
	entry := billing.EventLogEntry{
		EventID:    ev.ID,
		EventType:  ev.Type,
		UserID:     res.UserID,
		CustomerID: eventCustomerID(ev),
		Outcome:    res.Outcome,
		Detail:     res.Detail,
		Payload:    ev.Raw,
		ReceivedAt: p.now().UTC(),
	}
	if err := p.events.Record(ctx, entry); err != nil {
		p.logger.Warnw("failed to record webhook event", "event_id", ev.ID, "error", err)
	}
}

func eventCustomerID(ev *billing.Event) string {
	switch {
	case ev.CheckoutSession != nil:
		return ev.CheckoutSession.CustomerID
	case ev.Invoice != nil:
		return ev.Invoice.CustomerID
	case ev.Subscription != nil:
		return ev.Subscription.CustomerID
	}
	return ""
}
