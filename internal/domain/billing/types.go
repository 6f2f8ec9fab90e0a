// Package billing holds provider-neutral views of the billing objects the
// application reads. The Stripe adapter translates into these.
package billing

import (
	"context"
	"time"
)

// Event types the webhook processor acts on.
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

// Checkout session modes.
const (
	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

// MetadataUserID is the metadata key carrying our user id on customers,
// checkout sessions and subscriptions.
const MetadataUserID = "userId"

type Subscription struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customerId"`
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool      `json:"cancelAtPeriodEnd"`
	PriceIDs          []string  `json:"priceIds,omitempty"`

	Metadata map[string]string `json:"-"`
}

type Customer struct {
	ID    string
	Email string
}

type CheckoutSession struct {
	ID                string
	URL               string
	Mode              string
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	CustomerEmail     string
	Metadata          map[string]string
}

type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	CustomerEmail  string
	Metadata       map[string]string
}

// Event is a verified webhook delivery. Raw holds the event's data.object;
// at most one of the typed payloads is set, matching Type.
type Event struct {
	ID   string
	Type string
	Raw  []byte

	CheckoutSession *CheckoutSession
	Invoice         *Invoice
	Subscription    *Subscription

	// DecodeErr is set when the signature was valid but data.object could
	// not be read into the typed view. The typed payload is nil then.
	DecodeErr error
}

type CreateCustomerParams struct {
	Email  string
	Name   string
	UserID string
}

type CreateCheckoutParams struct {
	CustomerID        string
	Mode              string
	PriceID           string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

// Provider is the billing API port. ListSubscriptions performs one list
// read across all pages and returns subscriptions in every status.
type Provider interface {
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error)
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutParams) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// EventVerifier authenticates and decodes a raw webhook delivery.
type EventVerifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}

// EventLog records processed webhook deliveries for remediation.
type EventLog interface {
	Record(ctx context.Context, entry EventLogEntry) error
	Recent(ctx context.Context, limit int) ([]EventLogEntry, error)
}

// Outcomes recorded in the event log.
const (
	OutcomeApplied    = "applied"
	OutcomeUnchanged  = "unchanged"
	OutcomeIgnored    = "ignored"
	OutcomeUnresolved = "unresolved"
	OutcomeFailed     = "failed"
)

type EventLogEntry struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	UserID     string    `json:"userId,omitempty"`
	CustomerID string    `json:"customerId,omitempty"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	Payload    []byte    `json:"payload,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}
