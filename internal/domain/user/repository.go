package user

import (
	"context"

	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
)

// Repository is the user datastore port. Implementations return (nil, nil)
// from the Get methods when no row matches.
type Repository interface {
	Create(ctx context.Context, user *User) error

	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail expects an already normalized address.
	GetByEmail(ctx context.Context, email string) (*User, error)

	GetByStripeCustomerID(ctx context.Context, customerID string) (*User, error)

	// UpdateSubscription applies a partial update of the billing fields only.
	UpdateSubscription(ctx context.Context, id string, patch SubscriptionPatch) error

	SetStripeCustomerID(ctx context.Context, id, customerID string) error

	List(ctx context.Context, filter ListFilter) ([]*User, int64, error)
}

// SubscriptionPatch is the write reconciliation and webhooks perform.
// Nil pointers leave the column untouched.
type SubscriptionPatch struct {
	Status               vo.SubscriptionStatus
	StripeSubscriptionID *string
	StripeCustomerID     *string
}

// PatchFrom builds the patch that persists u's current billing fields.
func PatchFrom(u *User) SubscriptionPatch {
	p := SubscriptionPatch{Status: u.SubscriptionStatus()}
	if id := u.StripeSubscriptionID(); id != "" {
		p.StripeSubscriptionID = &id
	}
	if id := u.StripeCustomerID(); id != "" {
		p.StripeCustomerID = &id
	}
	return p
}

type ListFilter struct {
	Page               int
	PageSize           int
	Email              string
	SubscriptionStatus string
	// HasCustomer restricts to users with (true) or without (false) a billing customer.
	HasCustomer *bool
}
