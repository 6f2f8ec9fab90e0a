package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/kursio/kursio/internal/domain/billing"
	apperrors "github.com/kursio/kursio/internal/shared/errors"
)

// WebhookVerifier checks the Stripe-Signature header and decodes the
// event types the application handles into billing views. Only signature
// problems are returned as errors; a payload that fails to decode comes
// back with Event.DecodeErr set.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

func (v *WebhookVerifier) Verify(payload []byte, signature string) (*billing.Event, error) {
	if strings.TrimSpace(v.secret) == "" {
		return nil, apperrors.NewSignatureVerificationError("webhook secret not configured", nil)
	}
	if strings.TrimSpace(signature) == "" {
		return nil, apperrors.NewSignatureVerificationError("missing Stripe signature", nil)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperrors.NewSignatureVerificationError("invalid Stripe signature", err)
	}

	out := &billing.Event{ID: event.ID, Type: string(event.Type)}
	if event.Data != nil {
		out.Raw = event.Data.Raw
	}

	switch out.Type {
	case billing.EventCheckoutSessionCompleted:
		var s checkoutSessionPayload
		if err := json.Unmarshal(out.Raw, &s); err != nil {
			out.DecodeErr = fmt.Errorf("decode checkout.session: %w", err)
			break
		}
		out.CheckoutSession = s.toBilling()
	case billing.EventInvoicePaymentSucceeded:
		var inv invoicePayload
		if err := json.Unmarshal(out.Raw, &inv); err != nil {
			out.DecodeErr = fmt.Errorf("decode invoice: %w", err)
			break
		}
		out.Invoice = inv.toBilling()
	case billing.EventCustomerSubscriptionDeleted:
		var sub subscriptionPayload
		if err := json.Unmarshal(out.Raw, &sub); err != nil {
			out.DecodeErr = fmt.Errorf("decode subscription: %w", err)
			break
		}
		out.Subscription = sub.toBilling()
	}
	return out, nil
}

// expandableID accepts either an object id or an expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*e = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type checkoutSessionPayload struct {
	ID                string       `json:"id"`
	Mode              string       `json:"mode"`
	Customer          expandableID `json:"customer"`
	Subscription      expandableID `json:"subscription"`
	ClientReferenceID string       `json:"client_reference_id"`
	CustomerEmail     string       `json:"customer_email"`
	CustomerDetails   struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

func (s checkoutSessionPayload) toBilling() *billing.CheckoutSession {
	email := s.CustomerEmail
	if email == "" {
		email = s.CustomerDetails.Email
	}
	return &billing.CheckoutSession{
		ID:                s.ID,
		Mode:              s.Mode,
		CustomerID:        string(s.Customer),
		SubscriptionID:    string(s.Subscription),
		ClientReferenceID: s.ClientReferenceID,
		CustomerEmail:     email,
		Metadata:          s.Metadata,
	}
}

// invoicePayload reads the subscription from parent.subscription_details
// and falls back to the top-level field older API versions send.
type invoicePayload struct {
	ID            string       `json:"id"`
	Customer      expandableID `json:"customer"`
	CustomerEmail string       `json:"customer_email"`
	Subscription  expandableID `json:"subscription"`
	Parent        struct {
		SubscriptionDetails struct {
			Subscription expandableID      `json:"subscription"`
			Metadata     map[string]string `json:"metadata"`
		} `json:"subscription_details"`
	} `json:"parent"`
	Metadata map[string]string `json:"metadata"`
}

func (inv invoicePayload) toBilling() *billing.Invoice {
	details := inv.Parent.SubscriptionDetails
	subID := string(details.Subscription)
	if subID == "" {
		subID = string(inv.Subscription)
	}

	metadata := map[string]string{}
	for k, v := range details.Metadata {
		metadata[k] = v
	}
	for k, v := range inv.Metadata {
		metadata[k] = v
	}

	return &billing.Invoice{
		ID:             inv.ID,
		CustomerID:     string(inv.Customer),
		SubscriptionID: subID,
		CustomerEmail:  inv.CustomerEmail,
		Metadata:       metadata,
	}
}

type subscriptionPayload struct {
	ID                string       `json:"id"`
	Customer          expandableID `json:"customer"`
	Status            string       `json:"status"`
	CancelAtPeriodEnd bool         `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64        `json:"current_period_end"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

func (s subscriptionPayload) toBilling() *billing.Subscription {
	out := &billing.Subscription{
		ID:                s.ID,
		CustomerID:        string(s.Customer),
		Status:            s.Status,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	periodEnd := s.CurrentPeriodEnd
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd > periodEnd {
			periodEnd = item.CurrentPeriodEnd
		}
		if item.Price.ID != "" {
			out.PriceIDs = append(out.PriceIDs, item.Price.ID)
		}
	}
	if periodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(periodEnd, 0).UTC()
	}
	return out
}
