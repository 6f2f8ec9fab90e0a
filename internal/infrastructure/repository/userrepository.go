package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/infrastructure/persistence/mappers"
	"github.com/kursio/kursio/internal/infrastructure/persistence/models"
	apperrors "github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

// UserRepository stores users in the relational datastore.
type UserRepository struct {
	db     *gorm.DB
	mapper mappers.UserMapper
	logger logger.Interface
}

func NewUserRepository(db *gorm.DB, log logger.Interface) *UserRepository {
	return &UserRepository{
		db:     db,
		mapper: mappers.NewUserMapper(),
		logger: log,
	}
}

func (r *UserRepository) Create(ctx context.Context, entity *user.User) error {
	model := r.mapper.ToModel(entity)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("user already exists", entity.Email().String())
		}
		r.logger.Errorw("failed to create user", "email", model.Email, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Infow("user created", "id", model.ID, "email", model.Email)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.first(ctx, "stripe_customer_id = ?", customerID)
}

func (r *UserRepository) first(ctx context.Context, query string, arg string) (*user.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get user", "query", query, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map user model to entity", "id", model.ID, "error", err)
		return nil, err
	}
	return entity, nil
}

func (r *UserRepository) UpdateSubscription(ctx context.Context, id string, patch user.SubscriptionPatch) error {
	updates := map[string]interface{}{
		"subscription_status": patch.Status.String(),
		"updated_at":          time.Now().UTC(),
	}
	if patch.StripeSubscriptionID != nil {
		updates["stripe_subscription_id"] = nullableColumn(*patch.StripeSubscriptionID)
	}
	if patch.StripeCustomerID != nil {
		updates["stripe_customer_id"] = nullableColumn(*patch.StripeCustomerID)
	}

	result := r.db.WithContext(ctx).Model(&models.UserModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if apperrors.IsDuplicateError(result.Error) {
			return apperrors.NewConflictError("billing customer already linked to another user")
		}
		r.logger.Errorw("failed to update subscription", "id", id, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	// updated_at always changes, so zero rows means the user is gone
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("user not found", id)
	}
	return nil
}

func (r *UserRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	result := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stripe_customer_id": customerID,
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		if apperrors.IsDuplicateError(result.Error) {
			return apperrors.NewConflictError("billing customer already linked to another user", customerID)
		}
		return fmt.Errorf("failed to set billing customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("user not found", id)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter user.ListFilter) ([]*user.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UserModel{})

	if filter.Email != "" {
		query = query.Where("email LIKE ?", "%"+filter.Email+"%")
	}
	if filter.SubscriptionStatus != "" {
		query = query.Where("subscription_status = ?", filter.SubscriptionStatus)
	}
	if filter.HasCustomer != nil {
		if *filter.HasCustomer {
			query = query.Where("stripe_customer_id IS NOT NULL AND stripe_customer_id <> ''")
		} else {
			query = query.Where("stripe_customer_id IS NULL OR stripe_customer_id = ''")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var rows []*models.UserModel
	if err := query.Order("created_at ASC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list users", "error", err)
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users, err := r.mapper.ToEntities(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func nullableColumn(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
