package usecases

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kursio/kursio/internal/application/subscription"
	"github.com/kursio/kursio/internal/domain/user"
	"github.com/kursio/kursio/internal/shared/logger"
)

// UserReconciler is satisfied by *subscription.Reconciler.
type UserReconciler interface {
	Reconcile(ctx context.Context, userID string) (*user.User, *subscription.Diagnostics, error)
	ReconcileUser(ctx context.Context, u *user.User) (*user.User, *subscription.Diagnostics)
}

type ReconcileAllResult struct {
	Checked  int64 `json:"checked"`
	Changed  int64 `json:"changed"`
	Degraded int64 `json:"degraded"`
}

// ReconcileAllUseCase sweeps every user linked to a billing customer. It is
// the remedy for missed webhooks and is triggered manually or by the
// optional scheduled sweep.
type ReconcileAllUseCase struct {
	userRepo    user.Repository
	reconciler  UserReconciler
	concurrency int
	pageSize    int
	logger      logger.Interface
}

func NewReconcileAllUseCase(userRepo user.Repository, reconciler UserReconciler, concurrency, pageSize int, logger logger.Interface) *ReconcileAllUseCase {
	if concurrency < 1 {
		concurrency = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	return &ReconcileAllUseCase{
		userRepo:    userRepo,
		reconciler:  reconciler,
		concurrency: concurrency,
		pageSize:    pageSize,
		logger:      logger,
	}
}

func (uc *ReconcileAllUseCase) Execute(ctx context.Context) (*ReconcileAllResult, error) {
	var checked, changed, degraded atomic.Int64
	hasCustomer := true

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)

	for page := 1; ; page++ {
		users, total, err := uc.userRepo.List(gctx, user.ListFilter{
			Page:        page,
			PageSize:    uc.pageSize,
			HasCustomer: &hasCustomer,
		})
		if err != nil {
			_ = g.Wait()
			return nil, fmt.Errorf("failed to list users page %d: %w", page, err)
		}

		for _, u := range users {
			u := u
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				_, diag := uc.reconciler.ReconcileUser(gctx, u)
				checked.Add(1)
				if diag.Changed {
					changed.Add(1)
				}
				if diag.Degraded() {
					degraded.Add(1)
				}
				return nil
			})
		}

		if len(users) == 0 || int64(page*uc.pageSize) >= total {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ReconcileAllResult{
		Checked:  checked.Load(),
		Changed:  changed.Load(),
		Degraded: degraded.Load(),
	}
	uc.logger.Infow("subscription sweep finished",
		"checked", result.Checked,
		"changed", result.Changed,
		"degraded", result.Degraded,
	)
	return result, nil
}
