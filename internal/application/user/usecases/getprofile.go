package usecases

import (
	"context"
	"fmt"

	"github.com/kursio/kursio/internal/application/user/dto"
	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

// GetProfileUseCase returns the stored account without touching billing.
type GetProfileUseCase struct {
	userRepo user.Repository
	logger   logger.Interface
}

func NewGetProfileUseCase(userRepo user.Repository, logger logger.Interface) *GetProfileUseCase {
	return &GetProfileUseCase{userRepo: userRepo, logger: logger}
}

func (uc *GetProfileUseCase) Execute(ctx context.Context, userID string) (*dto.UserDTO, error) {
	u, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		uc.logger.Errorw("failed to get user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, errors.NewNotFoundError("user not found")
	}
	return dto.ToUserDTO(u), nil
}
