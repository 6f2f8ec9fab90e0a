package reconcile

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/kursio/kursio/internal/infrastructure/config"
	"github.com/kursio/kursio/internal/infrastructure/database"
	httpRouter "github.com/kursio/kursio/internal/interfaces/http"
	sharedConfig "github.com/kursio/kursio/internal/shared/config"
	"github.com/kursio/kursio/internal/shared/logger"
)

var (
	env        string
	configPath string
	userID     string
	all        bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Refresh stored subscription statuses from Stripe",
		Long: `Re-read subscriptions from Stripe and overwrite the stored status.
Use --user for one account or --all to sweep every user with a Stripe customer,
for example after webhook deliveries were missed.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().StringVar(&userID, "user", "", "Reconcile a single user by id")
	cmd.Flags().BoolVar(&all, "all", false, "Reconcile every user linked to a Stripe customer")
	cmd.MarkFlagsMutuallyExclusive("user", "all")
	cmd.MarkFlagsOneRequired("user", "all")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(env, configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	var db *gorm.DB
	if cfg.Store.Backend == sharedConfig.StoreBackendPostgres {
		if err := database.Init(&cfg.Database); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.Close()
		db = database.Get()
	}

	container, err := httpRouter.NewContainer(db, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to wire application: %w", err)
	}
	defer container.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var result any
	if userID != "" {
		result, err = container.ReconcileUser().Execute(ctx, userID)
	} else {
		result, err = container.ReconcileAll().Execute(ctx)
	}
	if err != nil {
		return err
	}

	return printJSON(cmd, result)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
