package mappers

import (
	"fmt"

	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/infrastructure/persistence/models"
)

// UserMapper converts between the users row and the User aggregate.
type UserMapper interface {
	ToEntity(model *models.UserModel) (*user.User, error)
	ToModel(entity *user.User) *models.UserModel
	ToEntities(models []*models.UserModel) ([]*user.User, error)
}

type userMapper struct{}

func NewUserMapper() UserMapper {
	return &userMapper{}
}

func (m *userMapper) ToEntity(model *models.UserModel) (*user.User, error) {
	if model == nil {
		return nil, nil
	}
	u, err := user.ReconstructUser(user.Snapshot{
		ID:                   model.ID,
		Email:                model.Email,
		Name:                 model.Name,
		PasswordHash:         model.PasswordHash,
		StripeCustomerID:     deref(model.StripeCustomerID),
		StripeSubscriptionID: deref(model.StripeSubscriptionID),
		SubscriptionStatus:   model.SubscriptionStatus,
		IsAdmin:              model.IsAdmin,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to map user %s: %w", model.ID, err)
	}
	return u, nil
}

func (m *userMapper) ToModel(entity *user.User) *models.UserModel {
	if entity == nil {
		return nil
	}
	s := entity.Snapshot()
	return &models.UserModel{
		ID:                   s.ID,
		Email:                s.Email,
		Name:                 s.Name,
		PasswordHash:         s.PasswordHash,
		StripeCustomerID:     nullable(s.StripeCustomerID),
		StripeSubscriptionID: nullable(s.StripeSubscriptionID),
		SubscriptionStatus:   s.SubscriptionStatus,
		IsAdmin:              s.IsAdmin,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func (m *userMapper) ToEntities(rows []*models.UserModel) ([]*user.User, error) {
	out := make([]*user.User, 0, len(rows))
	for _, row := range rows {
		u, err := m.ToEntity(row)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
