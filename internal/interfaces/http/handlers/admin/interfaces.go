package admin

import (
	"context"

	"github.com/kursio/kursio/internal/application/admin/usecases"
	"github.com/kursio/kursio/internal/domain/billing"
)

type listSubscribersUseCase interface {
	Execute(ctx context.Context, query usecases.ListSubscribersQuery) (*usecases.ListSubscribersResult, error)
}

type reconcileUserUseCase interface {
	Execute(ctx context.Context, userID string) (*usecases.ReconcileUserResult, error)
}

type reconcileAllUseCase interface {
	Execute(ctx context.Context) (*usecases.ReconcileAllResult, error)
}

type eventLogReader interface {
	Recent(ctx context.Context, limit int) ([]billing.EventLogEntry, error)
}
