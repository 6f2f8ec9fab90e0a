package usecases

import (
	"context"
	"fmt"

	"github.com/kursio/kursio/internal/application/user/dto"
	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/shared/logger"
	"github.com/kursio/kursio/internal/shared/utils"
)

type ListSubscribersQuery struct {
	Page               int
	PageSize           int
	Email              string
	SubscriptionStatus string
	HasCustomer        *bool
}

type ListSubscribersResult struct {
	Users    []*dto.UserDTO
	Total    int64
	Page     int
	PageSize int
}

type ListSubscribersUseCase struct {
	userRepo user.Repository
	logger   logger.Interface
}

func NewListSubscribersUseCase(userRepo user.Repository, logger logger.Interface) *ListSubscribersUseCase {
	return &ListSubscribersUseCase{userRepo: userRepo, logger: logger}
}

func (uc *ListSubscribersUseCase) Execute(ctx context.Context, query ListSubscribersQuery) (*ListSubscribersResult, error) {
	p := utils.ValidatePagination(query.Page, query.PageSize)

	users, total, err := uc.userRepo.List(ctx, user.ListFilter{
		Page:               p.Page,
		PageSize:           p.PageSize,
		Email:              query.Email,
		SubscriptionStatus: query.SubscriptionStatus,
		HasCustomer:        query.HasCustomer,
	})
	if err != nil {
		uc.logger.Errorw("failed to list users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &ListSubscribersResult{
		Users:    dto.ToUserDTOs(users),
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}, nil
}
