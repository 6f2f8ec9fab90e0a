package user

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
)

// User is the account aggregate. subscriptionStatus is a cache of what the
// billing provider reports and is only rewritten by reconciliation and
// webhook delivery.
type User struct {
	id                   string
	email                *vo.Email
	name                 *vo.Name
	passwordHash         string
	stripeCustomerID     string
	stripeSubscriptionID string
	subscriptionStatus   vo.SubscriptionStatus
	isAdmin              bool
	createdAt            time.Time
	updatedAt            time.Time
}

// NewUser creates an unsubscribed account with a fresh UUID.
func NewUser(email *vo.Email, name *vo.Name, passwordHash string) (*User, error) {
	if email == nil {
		return nil, fmt.Errorf("email is required")
	}
	if name == nil {
		return nil, fmt.Errorf("name is required")
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("password hash is required")
	}

	now := time.Now().UTC()
	return &User{
		id:                 uuid.NewString(),
		email:              email,
		name:               name,
		passwordHash:       passwordHash,
		subscriptionStatus: vo.SubscriptionInactive,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// Snapshot carries persisted fields back into the aggregate.
type Snapshot struct {
	ID                   string
	Email                string
	Name                 string
	PasswordHash         string
	StripeCustomerID     string
	StripeSubscriptionID string
	SubscriptionStatus   string
	IsAdmin              bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ReconstructUser rebuilds a user from storage.
func ReconstructUser(s Snapshot) (*User, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	email, err := vo.NewEmail(s.Email)
	if err != nil {
		return nil, fmt.Errorf("invalid stored email for user %s: %w", s.ID, err)
	}
	name, err := vo.NewName(s.Name)
	if err != nil {
		// names written by older clients may not validate; keep them readable
		name = vo.MustName(s.Name)
	}

	return &User{
		id:                   s.ID,
		email:                email,
		name:                 name,
		passwordHash:         s.PasswordHash,
		stripeCustomerID:     s.StripeCustomerID,
		stripeSubscriptionID: s.StripeSubscriptionID,
		subscriptionStatus:   vo.ParseSubscriptionStatus(s.SubscriptionStatus),
		isAdmin:              s.IsAdmin,
		createdAt:            s.CreatedAt,
		updatedAt:            s.UpdatedAt,
	}, nil
}

// Snapshot exports the persisted fields.
func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:                   u.id,
		Email:                u.email.String(),
		Name:                 u.name.String(),
		PasswordHash:         u.passwordHash,
		StripeCustomerID:     u.stripeCustomerID,
		StripeSubscriptionID: u.stripeSubscriptionID,
		SubscriptionStatus:   u.subscriptionStatus.String(),
		IsAdmin:              u.isAdmin,
		CreatedAt:            u.createdAt,
		UpdatedAt:            u.updatedAt,
	}
}

func (u *User) ID() string                                { return u.id }
func (u *User) Email() *vo.Email                          { return u.email }
func (u *User) Name() *vo.Name                            { return u.name }
func (u *User) PasswordHash() string                      { return u.passwordHash }
func (u *User) StripeCustomerID() string                  { return u.stripeCustomerID }
func (u *User) StripeSubscriptionID() string              { return u.stripeSubscriptionID }
func (u *User) SubscriptionStatus() vo.SubscriptionStatus { return u.subscriptionStatus }
func (u *User) IsAdmin() bool                             { return u.isAdmin }
func (u *User) CreatedAt() time.Time                      { return u.createdAt }
func (u *User) UpdatedAt() time.Time                      { return u.updatedAt }

func (u *User) HasStripeCustomer() bool {
	return u.stripeCustomerID != ""
}

// IsSubscribed is the entitlement check used by the frontend and JWT claims.
func (u *User) IsSubscribed() bool {
	return u.subscriptionStatus == vo.SubscriptionActive
}

// ApplySubscriptionStatus sets the cached status and, when non-empty, the
// subscription id. It reports whether anything changed.
func (u *User) ApplySubscriptionStatus(status vo.SubscriptionStatus, subscriptionID string) bool {
	changed := false
	if u.subscriptionStatus != status {
		u.subscriptionStatus = status
		changed = true
	}
	if subscriptionID != "" && u.stripeSubscriptionID != subscriptionID {
		u.stripeSubscriptionID = subscriptionID
		changed = true
	}
	if changed {
		u.updatedAt = time.Now().UTC()
	}
	return changed
}

// LinkStripeCustomer records the billing customer id. A user is bound to one
// customer for life; relinking to a different id is refused.
func (u *User) LinkStripeCustomer(customerID string) error {
	if customerID == "" {
		return fmt.Errorf("customer id cannot be empty")
	}
	if u.stripeCustomerID == customerID {
		return nil
	}
	if u.stripeCustomerID != "" {
		return ErrCustomerAlreadyLinked
	}
	u.stripeCustomerID = customerID
	u.updatedAt = time.Now().UTC()
	return nil
}

func (u *User) GrantAdmin() {
	u.isAdmin = true
}

// VerifyPassword checks plain against the stored hash.
func (u *User) VerifyPassword(plain string, hasher PasswordHasher) bool {
	if u.passwordHash == "" {
		return false
	}
	return hasher.Verify(plain, u.passwordHash) == nil
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}
