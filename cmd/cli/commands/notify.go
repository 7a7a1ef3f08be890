package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// NotifyCmd creates the notify command
func NotifyCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <booking_id> <hold|confirm|cancel>",
		Short: "Send booking notifications over every configured channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookingID := args[0]
			event, err := model.ParseEventType(args[1])
			if err != nil {
				return err
			}

			app.Logger.Debug("notify command",
				zap.String("booking_id", bookingID),
				zap.String("event", string(event)))

			orch, err := app.Orchestrator()
			if err != nil {
				return err
			}

			result, err := orch.SendNotifications(app.Ctx, bookingID, event)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Notifications sent for booking %s (%s)\n\n", bookingID, event)
			fmt.Printf("Emails:   %d\n", result.EmailsSent)
			fmt.Printf("WhatsApp: %d\n", result.WhatsAppSent)
			fmt.Printf("Telegram: %d\n\n", result.TelegramSent)

			return nil
		},
	}
}
