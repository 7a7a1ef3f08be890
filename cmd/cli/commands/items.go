package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
	"github.com/jakechorley/salon-bookings/pkg/core/shiftdata"
)

// itemsFile is the YAML layout accepted by saveShiftItems. Amounts are
// strings so they are never rounded through float64.
type itemsFile struct {
	Items []itemEntry `yaml:"items"`
}

type itemEntry struct {
	ID                string `yaml:"id,omitempty"`
	ClientName        string `yaml:"clientName,omitempty"`
	ServiceName       string `yaml:"serviceName,omitempty"`
	ServiceAmount     string `yaml:"serviceAmount,omitempty"`
	ConsumablesAmount string `yaml:"consumablesAmount,omitempty"`
	BookingID         string `yaml:"bookingId,omitempty"`
}

func parseItemsFile(data []byte) ([]model.ShiftItem, error) {
	var f itemsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse items file: %w", err)
	}

	items := make([]model.ShiftItem, 0, len(f.Items))
	for i, e := range f.Items {
		service, err := parseAmount(e.ServiceAmount)
		if err != nil {
			return nil, fmt.Errorf("items[%d].serviceAmount: %w", i, err)
		}
		consumables, err := parseAmount(e.ConsumablesAmount)
		if err != nil {
			return nil, fmt.Errorf("items[%d].consumablesAmount: %w", i, err)
		}

		items = append(items, model.ShiftItem{
			ID:                optional(e.ID),
			ClientName:        strings.TrimSpace(e.ClientName),
			ServiceName:       strings.TrimSpace(e.ServiceName),
			ServiceAmount:     service,
			ConsumablesAmount: consumables,
			BookingID:         optional(e.BookingID),
		})
	}

	return items, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseShiftDate(s string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD, got: %s", s)
	}
	return date, nil
}

func printSnapshot(w io.Writer, snap *shiftdata.Snapshot) {
	status := "open"
	if !snap.Shift.IsOpen() {
		status = "closed"
	}
	fmt.Fprintf(w, "\nShift %s (%s, %s)\n\n", snap.Shift.ID, snap.Shift.ShiftDate, status)

	if len(snap.Items) == 0 {
		fmt.Fprintln(w, "No items yet.")
	}
	for i, item := range snap.Items {
		client := item.ClientName
		if client == "" && item.BookingID != nil {
			client = "booking " + *item.BookingID
		}
		marker := " "
		if !item.IsSaved() {
			marker = "*"
		}
		fmt.Fprintf(w, "%s%2d. %-24s %-24s %10s %10s\n", marker, i+1,
			client, item.ServiceName,
			item.ServiceAmount.StringFixed(2), item.ConsumablesAmount.StringFixed(2))
	}

	s := snap.Summary
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total:        %s\n", s.DisplayTotalAmount.StringFixed(2))
	fmt.Fprintf(w, "Consumables:  %s\n", s.TotalConsumables.StringFixed(2))
	fmt.Fprintf(w, "Master share: %s\n", s.MasterShare.StringFixed(2))
	fmt.Fprintf(w, "Salon share:  %s\n", s.SalonShare.StringFixed(2))
	fmt.Fprintln(w)
}
