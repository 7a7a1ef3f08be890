package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/finance"
	"github.com/jakechorley/salon-bookings/pkg/db"
)

// OpenShiftCmd creates the openShift command
func OpenShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "openShift <staff_id> <business_id> [date]",
		Short: "Open a staff member's shift (defaults to today)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now()
			if len(args) > 2 {
				var err error
				date, err = parseShiftDate(args[2])
				if err != nil {
					return err
				}
			}

			split := app.Cfg.SplitFor(date)
			app.Logger.Debug("openShift command",
				zap.String("staff_id", args[0]),
				zap.String("business_id", args[1]),
				zap.String("date", date.Format("2006-01-02")),
				zap.String("percent_master", split.PercentMaster.String()))

			shift, err := app.Database.OpenShift(app.Ctx, args[0], args[1], date, split)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift open\n\n")
			fmt.Printf("Shift ID: %s\n", shift.ID)
			fmt.Printf("Date:     %s\n", shift.ShiftDate)
			fmt.Printf("Split:    %s%% master / %s%% salon\n", shift.PercentMaster, shift.PercentSalon)
			if shift.HourlyRate != nil {
				fmt.Printf("Rate:     %s per hour guaranteed\n", shift.HourlyRate.StringFixed(2))
			}
			fmt.Println()

			return nil
		},
	}
}

// SaveShiftItemsCmd creates the saveShiftItems command
func SaveShiftItemsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "saveShiftItems <shift_id> <items.yaml>",
		Short: "Replace a shift's items with the contents of a YAML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shiftID := args[0]

			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read items file: %w", err)
			}
			items, err := parseItemsFile(data)
			if err != nil {
				return err
			}

			loader, err := app.Loader()
			if err != nil {
				return err
			}

			saved, err := loader.SaveItems(app.Ctx, shiftID, items)
			var fieldErrs finance.FieldErrors
			if errors.As(err, &fieldErrs) {
				fmt.Printf("\n✗ %d invalid fields:\n", len(fieldErrs))
				for _, line := range fieldErrs.Lines() {
					fmt.Printf("  %s\n", line)
				}
				fmt.Println()
				return fmt.Errorf("items not saved")
			}
			if errors.Is(err, db.ErrShiftClosed) {
				return fmt.Errorf("shift %s is closed and can no longer be edited", shiftID)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Saved %d items\n", len(saved))

			snap, err := loader.Load(app.Ctx, shiftID, nil)
			if err != nil {
				return err
			}
			printSnapshot(os.Stdout, snap)

			return nil
		},
	}
}

// ShiftSummaryCmd creates the shiftSummary command
func ShiftSummaryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shiftSummary <shift_id>",
		Short: "Show a shift's items and financial summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := app.Loader()
			if err != nil {
				return err
			}

			snap, err := loader.Load(app.Ctx, args[0], nil)
			if err != nil {
				return err
			}
			printSnapshot(os.Stdout, snap)

			return nil
		},
	}
}

// CloseShiftCmd creates the closeShift command
func CloseShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "closeShift <shift_id> <hours_worked>",
		Short: "Close a shift, freezing its totals and guarantee top-up",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shiftID := args[0]
			hours, err := decimal.NewFromString(args[1])
			if err != nil || hours.IsNegative() {
				return fmt.Errorf("hours_worked must be a non-negative number, got: %s", args[1])
			}

			shift, err := app.Database.CloseShift(app.Ctx, shiftID, hours)
			if errors.Is(err, db.ErrShiftClosed) {
				return fmt.Errorf("shift %s is already closed", shiftID)
			}
			if err != nil {
				return err
			}

			loader, err := app.Loader()
			if err != nil {
				return err
			}
			loader.Invalidate(app.Ctx, shiftID)

			fmt.Printf("\n✓ Shift closed\n\n")
			fmt.Printf("Total:        %s\n", shift.TotalAmount.StringFixed(2))
			fmt.Printf("Master share: %s\n", shift.MasterShare.StringFixed(2))
			fmt.Printf("Salon share:  %s\n", shift.SalonShare.StringFixed(2))
			if shift.TopupAmount != nil && shift.TopupAmount.IsPositive() {
				fmt.Printf("Top-up:       %s (guaranteed %s)\n",
					shift.TopupAmount.StringFixed(2), shift.GuaranteedAmount.StringFixed(2))
			}
			fmt.Println()

			return nil
		},
	}
}
