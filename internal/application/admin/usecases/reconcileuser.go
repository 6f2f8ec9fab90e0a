package usecases

import (
	"context"

	"github.com/kursio/kursio/internal/application/user/dto"
	"github.com/kursio/kursio/internal/shared/logger"
)

type ReconcileUserResult struct {
	User           *dto.UserDTO `json:"user"`
	PreviousStatus string       `json:"previousStatus"`
	Source         string       `json:"source"`
	Written        bool         `json:"written"`
	BillingError   string       `json:"billingError,omitempty"`
	PersistError   string       `json:"persistError,omitempty"`
}

// ReconcileUserUseCase exposes one reconciliation run with its diagnostics
// for support staff.
type ReconcileUserUseCase struct {
	reconciler UserReconciler
	logger     logger.Interface
}

func NewReconcileUserUseCase(reconciler UserReconciler, logger logger.Interface) *ReconcileUserUseCase {
	return &ReconcileUserUseCase{reconciler: reconciler, logger: logger}
}

func (uc *ReconcileUserUseCase) Execute(ctx context.Context, userID string) (*ReconcileUserResult, error) {
	u, diag, err := uc.reconciler.Reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileUserResult{
		User:           dto.ToUserDTO(u),
		PreviousStatus: diag.PreviousStatus.String(),
		Source:         string(diag.Source),
		Written:        diag.Written,
	}
	if diag.BillingErr != nil {
		result.BillingError = diag.BillingErr.Error()
	}
	if diag.PersistErr != nil {
		result.PersistError = diag.PersistErr.Error()
	}
	return result, nil
}
