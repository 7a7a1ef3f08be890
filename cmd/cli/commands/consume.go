package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/events"
)

// ConsumeBookingEventsCmd creates the consumeBookingEvents command
func ConsumeBookingEventsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "consumeBookingEvents",
		Short: "Send notifications for booking events read from Kafka until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := events.NewReader(events.ReaderConfig{
				Brokers: app.Cfg.Secrets.KafkaBrokers,
				Topic:   app.Cfg.Kafka.Topic,
				GroupID: app.Cfg.Kafka.GroupID,
			}, app.Logger)
			if err != nil {
				return fmt.Errorf("failed to create kafka reader: %w", err)
			}
			defer reader.Close()

			orch, err := app.Orchestrator()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.Logger.Info("Consuming booking events",
				zap.Strings("brokers", app.Cfg.Secrets.KafkaBrokers),
				zap.String("topic", app.Cfg.Kafka.Topic),
				zap.String("group_id", app.Cfg.Kafka.GroupID))

			err = events.NewConsumer(reader, orch, app.Logger).Run(ctx)
			if errors.Is(err, context.Canceled) {
				app.Logger.Info("Stopped consuming booking events")
				return nil
			}
			return err
		},
	}
}
