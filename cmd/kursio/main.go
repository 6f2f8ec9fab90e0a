package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kursio/kursio/internal/interfaces/cli/migrate"
	"github.com/kursio/kursio/internal/interfaces/cli/reconcile"
	"github.com/kursio/kursio/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kursio",
		Short: "kursio - e-learning backend with Stripe subscriptions",
		Long:  `kursio serves the course platform API and keeps subscription status in step with Stripe.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		reconcile.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
