package db

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
	"github.com/jakechorley/salon-bookings/pkg/core/participants"
)

// BookingStore fetches bookings with their joined records
type BookingStore interface {
	GetBookingRow(ctx context.Context, bookingID string) (*model.BookingRow, error)
}

// ParticipantStore provides the auth and profile lookups used to resolve participants.
// Both lookups return (nil, nil) when the user is not found.
type ParticipantStore interface {
	GetAuthUser(ctx context.Context, userID string) (*participants.AuthUser, error)
	GetProfile(ctx context.Context, userID string) (*participants.Profile, error)
}

// ShiftStore defines the shift and line-item persistence operations
type ShiftStore interface {
	OpenShift(ctx context.Context, staffID, bizID string, date time.Time, split ShiftSplit) (*model.Shift, error)
	GetShift(ctx context.Context, shiftID string) (*model.Shift, error)
	GetShiftItems(ctx context.Context, shiftID string) ([]model.ShiftItem, error)
	ReplaceShiftItems(ctx context.Context, shiftID string, items []model.ShiftItem) ([]model.ShiftItem, error)
	CloseShift(ctx context.Context, shiftID string, hoursWorked decimal.Decimal) (*model.Shift, error)
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	BookingStore
	ParticipantStore
	ShiftStore
	Close()
}
