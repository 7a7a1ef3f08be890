package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/cmd/cli/commands"
	"github.com/jakechorley/salon-bookings/internal/config"
	"github.com/jakechorley/salon-bookings/pkg/postgres"
	"github.com/jakechorley/salon-bookings/pkg/utils/logging"
)

var env string

func main() {
	app := &commands.AppContext{Ctx: context.Background()}

	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Salon bookings CLI - booking notifications and shift finances",
		Long:  `A CLI tool for sending booking notifications and managing staff shift finances.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(app)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.NotifyCmd(app))
	rootCmd.AddCommand(commands.OpenShiftCmd(app))
	rootCmd.AddCommand(commands.SaveShiftItemsCmd(app))
	rootCmd.AddCommand(commands.ShiftSummaryCmd(app))
	rootCmd.AddCommand(commands.CloseShiftCmd(app))
	rootCmd.AddCommand(commands.ConsumeBookingEventsCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config and database
func initApp(app *commands.AppContext) error {
	var err error

	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	if app.Cfg.Secrets.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	app.Logger.Info("Connecting to database")
	app.Database, err = postgres.NewDB(app.Ctx, app.Cfg.Secrets.DatabaseURL, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.Logger.Info("Database initialized successfully")

	return nil
}
