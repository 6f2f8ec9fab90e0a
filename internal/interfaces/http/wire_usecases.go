package http

import (
	adminUsecases "github.com/kursio/kursio/internal/application/admin/usecases"
	billingUsecases "github.com/kursio/kursio/internal/application/billing/usecases"
	subscriptionUsecases "github.com/kursio/kursio/internal/application/subscription/usecases"
	userUsecases "github.com/kursio/kursio/internal/application/user/usecases"
)

type allUseCases struct {
	register        *userUsecases.RegisterWithPasswordUseCase
	login           *userUsecases.LoginWithPasswordUseCase
	getProfile      *userUsecases.GetProfileUseCase
	getStatus       *subscriptionUsecases.GetSubscriptionStatusUseCase
	forceCheck      *subscriptionUsecases.ForceCheckSubscriptionUseCase
	createCheckout  *billingUsecases.CreateCheckoutSessionUseCase
	createPortal    *billingUsecases.CreatePortalSessionUseCase
	listSubscribers *adminUsecases.ListSubscribersUseCase
	reconcileUser   *adminUsecases.ReconcileUserUseCase
	reconcileAll    *adminUsecases.ReconcileAllUseCase
}

func (c *Container) initUseCases() {
	cfg := c.cfg
	log := c.log
	repo := c.repos.userRepo
	svcs := c.svcs

	c.ucs = &allUseCases{
		register:   userUsecases.NewRegisterWithPasswordUseCase(repo, svcs.hasher, log),
		login:      userUsecases.NewLoginWithPasswordUseCase(repo, svcs.hasher, svcs.reconciler, svcs.jwt, log),
		getProfile: userUsecases.NewGetProfileUseCase(repo, log),
		getStatus:  subscriptionUsecases.NewGetSubscriptionStatusUseCase(svcs.reconciler, log),
		forceCheck: subscriptionUsecases.NewForceCheckSubscriptionUseCase(svcs.reconciler, log),
		createCheckout: billingUsecases.NewCreateCheckoutSessionUseCase(repo, svcs.stripe, billingUsecases.CheckoutConfig{
			SubscriptionPriceID: cfg.Stripe.SubscriptionPriceID,
			SuccessURL:          cfg.Stripe.SuccessURL,
			CancelURL:           cfg.Stripe.CancelURL,
		}, log),
		createPortal:    billingUsecases.NewCreatePortalSessionUseCase(repo, svcs.stripe, cfg.Stripe.PortalReturnURL, log),
		listSubscribers: adminUsecases.NewListSubscribersUseCase(repo, log),
		reconcileUser:   adminUsecases.NewReconcileUserUseCase(svcs.reconciler, log),
		reconcileAll:    adminUsecases.NewReconcileAllUseCase(repo, svcs.reconciler, cfg.Reconcile.Concurrency, cfg.Reconcile.PageSize, log.Named("reconcile-all")),
	}
}
