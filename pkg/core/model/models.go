package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusHold      BookingStatus = "hold"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// EventType is the booking lifecycle event that triggers a notification dispatch
type EventType string

const (
	EventHold    EventType = "hold"
	EventConfirm EventType = "confirm"
	EventCancel  EventType = "cancel"
)

func (e EventType) IsValid() bool {
	return e == EventHold || e == EventConfirm || e == EventCancel
}

// ParseEventType parses an event type case-insensitively
func ParseEventType(s string) (EventType, error) {
	e := EventType(strings.ToLower(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", fmt.Errorf("invalid event type %q (expected hold, confirm or cancel)", s)
	}
	return e, nil
}

// Booking is a single appointment. It is only ever read by this module.
type Booking struct {
	ID          string        `json:"id"`
	Status      BookingStatus `json:"status"`
	StartAt     time.Time     `json:"start_at"`
	EndAt       time.Time     `json:"end_at"`
	CreatedAt   time.Time     `json:"created_at"`
	ClientID    *string       `json:"client_id"` // registered user, nil for guests
	ClientName  *string       `json:"client_name"`
	ClientPhone *string       `json:"client_phone"`
	ClientEmail *string       `json:"client_email"`
	ServiceID   string        `json:"service_id"`
	StaffID     string        `json:"staff_id"`
	BizID       string        `json:"biz_id"`
	BranchID    string        `json:"branch_id"`
}

// Service is a bookable salon service
type Service struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	DurationMinutes int             `json:"duration_min"`
	Price           decimal.Decimal `json:"price"`
}

// Staff is a staff member (master) who performs services
type Staff struct {
	ID       string  `json:"id"`
	UserID   *string `json:"user_id"`
	FullName string  `json:"full_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// Business is a salon business. EmailNotifyTo is the explicit notification allow-list.
type Business struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	OwnerID       *string  `json:"owner_id"`
	EmailNotifyTo []string `json:"email_notify_to"`
	Timezone      string   `json:"tz"`
	SiteOrigin    string   `json:"site_origin"`
}

// Branch is a physical location of a business
type Branch struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

// ParticipantRole tags a notification target
type ParticipantRole string

const (
	RoleClient ParticipantRole = "client"
	RoleStaff  ParticipantRole = "staff"
	RoleOwner  ParticipantRole = "owner"
	RoleAdmin  ParticipantRole = "admin"
)

// ParticipantData is the resolved contact and preference bundle for one person.
// It is derived fresh for every dispatch and never persisted.
type ParticipantData struct {
	Email            *string
	Name             *string
	Phone            *string
	TelegramID       *string
	NotifyEmail      bool
	NotifyWhatsApp   bool
	NotifyTelegram   bool
	WhatsAppVerified bool
	TelegramVerified bool
}

// EmailRecipient is a single email target. Only the client receives the calendar attachment.
type EmailRecipient struct {
	Email   string
	Name    string
	Role    ParticipantRole
	WithICS bool
}

// BookingDetails is the denormalised view passed to every message builder and sender
type BookingDetails struct {
	BookingID       string
	Status          BookingStatus
	StartAt         time.Time
	EndAt           time.Time
	ServiceName     string
	ServiceDuration int
	ServicePrice    decimal.Decimal
	StaffName       string
	BusinessName    string
	BranchName      string
	BranchAddress   string
	BranchPhone     string
	ClientName      string
	ClientPhone     string
	ClientEmail     string
	SiteOrigin      string
	Timezone        string
}

// ManageURL is the public link to the booking, empty when no site origin is known
func (d BookingDetails) ManageURL() string {
	if d.SiteOrigin == "" {
		return ""
	}
	return strings.TrimRight(d.SiteOrigin, "/") + "/booking/" + d.BookingID
}

// Location returns the business timezone, falling back to UTC
func (d BookingDetails) Location() *time.Location {
	if d.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotificationResult holds the aggregate sent counts of a dispatch
type NotificationResult struct {
	EmailsSent   int `json:"emailsSent"`
	WhatsAppSent int `json:"whatsappSent"`
	TelegramSent int `json:"telegramSent"`
}

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

// Shift is a staff member's single-day work session.
// Totals and shares are authoritative once the shift is closed.
type Shift struct {
	ID                string
	StaffID           string
	BizID             string
	ShiftDate         string // 2006-01-02
	Status            ShiftStatus
	OpenedAt          time.Time
	ClosedAt          *time.Time
	TotalAmount       decimal.Decimal
	ConsumablesAmount decimal.Decimal
	MasterShare       decimal.Decimal
	SalonShare        decimal.Decimal
	PercentMaster     decimal.Decimal
	PercentSalon      decimal.Decimal
	HourlyRate        *decimal.Decimal
	HoursWorked       *decimal.Decimal
	GuaranteedAmount  *decimal.Decimal
	TopupAmount       *decimal.Decimal
}

func (s Shift) IsOpen() bool {
	return s.Status == ShiftOpen
}

// ShiftItem is one client-service line within a shift. ID is nil until saved.
type ShiftItem struct {
	ID                *string `validate:"omitempty,uuid"`
	ClientName        string  `validate:"max=200"`
	ServiceName       string  `validate:"max=200"`
	ServiceAmount     decimal.Decimal
	ConsumablesAmount decimal.Decimal
	BookingID         *string `validate:"omitempty,uuid"`
	CreatedAt         time.Time
}

// IsSaved reports whether the item has a persisted id
func (i ShiftItem) IsSaved() bool {
	return i.ID != nil && *i.ID != ""
}

// FinancialSummary is the computed view of a shift's money
type FinancialSummary struct {
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	TotalConsumables   decimal.Decimal `json:"totalConsumables"`
	MasterShare        decimal.Decimal `json:"masterShare"`
	SalonShare         decimal.Decimal `json:"salonShare"`
	DisplayTotalAmount decimal.Decimal `json:"displayTotalAmount"`
}
