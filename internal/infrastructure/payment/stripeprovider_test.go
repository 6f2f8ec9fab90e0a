package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/kursio/kursio/internal/domain/billing"
	apperrors "github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

func newTestProvider() *StripeProvider {
	return NewStripeProvider(StripeConfig{SecretKey: "sk_test_x", ListLimit: 5}, logger.NewNopLogger())
}

func TestStripeProvider_ListSubscriptionsIsOneUnfilteredList(t *testing.T) {
	p := newTestProvider()

	calls := 0
	p.listSubscriptions = func(params *stripe.SubscriptionListParams) ([]*stripe.Subscription, error) {
		calls++
		assert.Equal(t, "cus_1", *params.Customer)
		assert.Equal(t, "all", *params.Status)
		assert.False(t, params.Single, "every page must be read")
		assert.EqualValues(t, 5, *params.Limit)
		return []*stripe.Subscription{
			{
				ID:       "sub_1",
				Status:   stripe.SubscriptionStatusCanceled,
				Customer: &stripe.Customer{ID: "cus_1"},
			},
			{
				ID:       "sub_2",
				Status:   stripe.SubscriptionStatusActive,
				Customer: &stripe.Customer{ID: "cus_1"},
				Metadata: map[string]string{"userId": "u-1"},
				Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{
					{CurrentPeriodEnd: 1735689600, Price: &stripe.Price{ID: "price_m"}},
				}},
			},
		}, nil
	}

	subs, err := p.ListSubscriptions(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, subs, 2)
	assert.Equal(t, "canceled", subs[0].Status)
	assert.Equal(t, "active", subs[1].Status)
	assert.Equal(t, []string{"price_m"}, subs[1].PriceIDs)
	assert.Equal(t, int64(1735689600), subs[1].CurrentPeriodEnd.Unix())
	assert.Equal(t, "u-1", subs[1].Metadata["userId"])
}

func TestStripeProvider_ErrorsAreBillingProviderErrors(t *testing.T) {
	p := newTestProvider()
	p.listSubscriptions = func(*stripe.SubscriptionListParams) ([]*stripe.Subscription, error) {
		return nil, &stripe.Error{Msg: "No such customer", HTTPStatusCode: 404}
	}
	p.createCustomer = func(*stripe.CustomerParams) (*stripe.Customer, error) {
		return nil, errors.New("connection reset")
	}

	_, err := p.ListSubscriptions(context.Background(), "cus_missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsBillingProviderError(err))
	assert.Contains(t, err.Error(), "No such customer")

	_, err = p.CreateCustomer(context.Background(), billing.CreateCustomerParams{Email: "a@example.pl", UserID: "u-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsBillingProviderError(err))
}

func TestStripeProvider_CreateCustomerTagsUser(t *testing.T) {
	p := newTestProvider()
	p.createCustomer = func(params *stripe.CustomerParams) (*stripe.Customer, error) {
		assert.Equal(t, "a@example.pl", *params.Email)
		assert.Equal(t, "u-1", params.Metadata["userId"])
		assert.Equal(t, "customer-u-1", *params.IdempotencyKey)
		return &stripe.Customer{ID: "cus_new", Email: "a@example.pl"}, nil
	}

	c, err := p.CreateCustomer(context.Background(), billing.CreateCustomerParams{Email: "a@example.pl", Name: "Ala", UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", c.ID)
}

func TestStripeProvider_CreateCheckoutSession(t *testing.T) {
	p := newTestProvider()
	p.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		assert.Equal(t, "subscription", *params.Mode)
		assert.Equal(t, "cus_1", *params.Customer)
		assert.Equal(t, "u-1", *params.ClientReferenceID)
		require.Len(t, params.LineItems, 1)
		assert.Equal(t, "price_m", *params.LineItems[0].Price)
		require.NotNil(t, params.SubscriptionData)
		assert.Equal(t, "u-1", params.SubscriptionData.Metadata["userId"])
		return &stripe.CheckoutSession{
			ID:       "cs_1",
			URL:      "https://checkout.stripe.com/c/cs_1",
			Mode:     stripe.CheckoutSessionModeSubscription,
			Customer: &stripe.Customer{ID: "cus_1"},
		}, nil
	}

	s, err := p.CreateCheckoutSession(context.Background(), billing.CreateCheckoutParams{
		CustomerID:        "cus_1",
		Mode:              billing.ModeSubscription,
		PriceID:           "price_m",
		ClientReferenceID: "u-1",
		SuccessURL:        "https://kursio.pl/ok",
		CancelURL:         "https://kursio.pl/cancel",
		Metadata:          map[string]string{"userId": "u-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.Equal(t, "cus_1", s.CustomerID)
	assert.Equal(t, "subscription", s.Mode)
}

func TestStripeProvider_CheckoutWithoutURLFails(t *testing.T) {
	p := newTestProvider()
	p.createCheckoutSession = func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{ID: "cs_1"}, nil
	}

	_, err := p.CreateCheckoutSession(context.Background(), billing.CreateCheckoutParams{Mode: billing.ModePayment})
	require.Error(t, err)
	assert.True(t, apperrors.IsBillingProviderError(err))
}

func TestStripeProvider_CreatePortalSession(t *testing.T) {
	p := newTestProvider()
	p.createPortalSession = func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
		assert.Equal(t, "cus_1", *params.Customer)
		assert.Equal(t, "https://kursio.pl/konto", *params.ReturnURL)
		return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/session"}, nil
	}

	url, err := p.CreatePortalSession(context.Background(), "cus_1", "https://kursio.pl/konto")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session", url)
}

// useStripeBackend points stripe-go at a local server for the test.
func useStripeBackend(t *testing.T, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}))
	t.Cleanup(func() { stripe.SetBackend(stripe.APIBackend, nil) })
}

func TestStripeProvider_ListSubscriptionsFollowsPages(t *testing.T) {
	type page struct {
		Object  string           `json:"object"`
		URL     string           `json:"url"`
		HasMore bool             `json:"has_more"`
		Data    []map[string]any `json:"data"`
	}

	first := page{Object: "list", URL: "/v1/subscriptions", HasMore: true}
	for i := 0; i < 10; i++ {
		first.Data = append(first.Data, map[string]any{
			"id": fmt.Sprintf("sub_expired_%d", i), "object": "subscription",
			"status": "incomplete_expired", "customer": "cus_many",
		})
	}
	second := page{Object: "list", URL: "/v1/subscriptions", Data: []map[string]any{
		{"id": "sub_live", "object": "subscription", "status": "active", "customer": "cus_many"},
	}}

	var requests []string
	useStripeBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "cus_many", q.Get("customer"))
		assert.Equal(t, "all", q.Get("status"))
		requests = append(requests, q.Get("starting_after"))

		w.Header().Set("Content-Type", "application/json")
		if q.Get("starting_after") == "" {
			_ = json.NewEncoder(w).Encode(first)
			return
		}
		_ = json.NewEncoder(w).Encode(second)
	}))

	p := NewStripeProvider(StripeConfig{SecretKey: "sk_test_pages", ListLimit: 10}, logger.NewNopLogger())
	subs, err := p.ListSubscriptions(context.Background(), "cus_many")

	require.NoError(t, err)
	require.Len(t, subs, 11)
	assert.Equal(t, []string{"", "sub_expired_9"}, requests)
	assert.Equal(t, "sub_live", subs[10].ID)
	assert.Equal(t, "active", subs[10].Status)
	assert.Equal(t, "cus_many", subs[10].CustomerID)
}
