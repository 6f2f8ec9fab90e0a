package usecases

import (
	"context"
	"fmt"

	"github.com/kursio/kursio/internal/application/user/dto"
	"github.com/kursio/kursio/internal/domain/user"
	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
	"github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

type LoginWithPasswordCommand struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginWithPasswordResult struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	User      *dto.UserDTO `json:"user"`
}

type LoginWithPasswordUseCase struct {
	userRepo   user.Repository
	hasher     user.PasswordHasher
	reconciler LoginReconciler
	tokens     TokenIssuer
	logger     logger.Interface
}

func NewLoginWithPasswordUseCase(
	userRepo user.Repository,
	hasher user.PasswordHasher,
	reconciler LoginReconciler,
	tokens TokenIssuer,
	logger logger.Interface,
) *LoginWithPasswordUseCase {
	return &LoginWithPasswordUseCase{
		userRepo:   userRepo,
		hasher:     hasher,
		reconciler: reconciler,
		tokens:     tokens,
		logger:     logger,
	}
}

func (uc *LoginWithPasswordUseCase) Execute(ctx context.Context, cmd LoginWithPasswordCommand) (*LoginWithPasswordResult, error) {
	existing, err := uc.userRepo.GetByEmail(ctx, vo.NormalizeEmail(cmd.Email))
	if err != nil {
		uc.logger.Errorw("failed to get user by email", "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// same answer for unknown email and wrong password
	if existing == nil || !existing.VerifyPassword(cmd.Password, uc.hasher) {
		return nil, errors.NewUnauthorizedError("invalid email or password")
	}

	// a billing outage degrades to the cached status and never blocks login
	reconciled, diag := uc.reconciler.ReconcileUser(ctx, existing)

	token, expiresIn, err := uc.tokens.Issue(reconciled)
	if err != nil {
		uc.logger.Errorw("failed to issue token", "user_id", reconciled.ID(), "error", err)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	uc.logger.Infow("user logged in",
		"user_id", reconciled.ID(),
		"subscription_status", reconciled.SubscriptionStatus(),
		"reconcile_degraded", diag.Degraded(),
	)

	return &LoginWithPasswordResult{
		Token:     token,
		ExpiresIn: expiresIn,
		User:      dto.ToUserDTO(reconciled),
	}, nil
}
