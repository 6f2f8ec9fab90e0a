package dto

import (
	"time"

	"github.com/kursio/kursio/internal/domain/user"
)

// UserDTO is the public view of an account. The password hash never leaves
// the application layer.
type UserDTO struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	DisplayName        string    `json:"displayName"`
	IsAdmin            bool      `json:"isAdmin"`
	IsSubscribed       bool      `json:"isSubscribed"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	HasBillingAccount  bool      `json:"hasBillingAccount"`
	CreatedAt          time.Time `json:"createdAt"`
}

func ToUserDTO(u *user.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:                 u.ID(),
		Email:              u.Email().String(),
		Name:               u.Name().String(),
		DisplayName:        u.Name().DisplayName(),
		IsAdmin:            u.IsAdmin(),
		IsSubscribed:       u.IsSubscribed(),
		SubscriptionStatus: u.SubscriptionStatus().String(),
		HasBillingAccount:  u.HasStripeCustomer(),
		CreatedAt:          u.CreatedAt(),
	}
}

func ToUserDTOs(users []*user.User) []*UserDTO {
	out := make([]*UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserDTO(u))
	}
	return out
}
