package messages

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

const icsProductID = "-//salon-bookings//booking notifications//EN"

// ICSFilename is the attachment name used for calendar invites
const ICSFilename = "booking.ics"

// BuildICS renders an iCalendar invite for the booking. Cancel events produce a
// METHOD:CANCEL calendar so calendar clients remove the existing entry.
func BuildICS(d model.BookingDetails, event model.EventType, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetProductId(icsProductID)
	if event == model.EventCancel {
		cal.SetMethod(ics.MethodCancel)
	} else {
		cal.SetMethod(ics.MethodRequest)
	}

	ev := cal.AddEvent(EventUID(d.BookingID))
	ev.SetCreatedTime(now.UTC())
	ev.SetDtStampTime(now.UTC())
	ev.SetStartAt(d.StartAt.UTC())
	end := d.EndAt
	if end.IsZero() || !end.After(d.StartAt) {
		end = d.StartAt.Add(time.Duration(maxInt(d.ServiceDuration, 30)) * time.Minute)
	}
	ev.SetEndAt(end.UTC())

	summary := d.ServiceName
	if d.BusinessName != "" {
		summary = fmt.Sprintf("%s at %s", orDash(d.ServiceName), d.BusinessName)
	}
	ev.SetSummary(summary)

	if loc := icsLocation(d); loc != "" {
		ev.SetLocation(loc)
	}
	if d.StaffName != "" {
		ev.SetDescription("Specialist: " + d.StaffName)
	}
	if url := d.ManageURL(); url != "" {
		ev.SetURL(url)
	}

	switch event {
	case model.EventCancel:
		ev.SetStatus(ics.ObjectStatusCancelled)
	case model.EventHold:
		ev.SetStatus(ics.ObjectStatusTentative)
	default:
		ev.SetStatus(ics.ObjectStatusConfirmed)
	}

	return cal.Serialize()
}

// EventUID is stable per booking so updates and cancellations replace the same entry
func EventUID(bookingID string) string {
	return bookingID + "@salon-bookings"
}

func icsLocation(d model.BookingDetails) string {
	parts := make([]string, 0, 2)
	if d.BranchName != "" {
		parts = append(parts, d.BranchName)
	}
	if d.BranchAddress != "" {
		parts = append(parts, d.BranchAddress)
	}
	return strings.Join(parts, ", ")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
