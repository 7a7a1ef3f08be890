package db

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrShiftNotFound   = errors.New("shift not found")
	ErrShiftClosed     = errors.New("shift is closed")
)

// ShiftSplit is the revenue split and guarantee terms frozen onto a shift when it opens
type ShiftSplit struct {
	PercentMaster decimal.Decimal
	PercentSalon  decimal.Decimal
	HourlyRate    *decimal.Decimal
}
