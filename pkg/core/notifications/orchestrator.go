package notifications

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// BookingFetcher loads a booking with its joined records
type BookingFetcher interface {
	GetBookingRow(ctx context.Context, bookingID string) (*model.BookingRow, error)
}

// ParticipantResolver resolves contact data for everyone involved in a booking
type ParticipantResolver interface {
	GetClientData(ctx context.Context, booking model.Booking) model.ParticipantData
	GetOwnerData(ctx context.Context, biz *model.Business) model.ParticipantData
	GetStaffData(ctx context.Context, staff *model.Staff) model.ParticipantData
}

// EmailChannel sends one email per recipient and reports how many were sent
type EmailChannel interface {
	SendNotifications(ctx context.Context, recipients []model.EmailRecipient, d model.BookingDetails, event model.EventType) int
}

// MessengerChannel sends a single message per participant
type MessengerChannel interface {
	SendToClient(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool
	SendToStaff(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool
	SendToOwner(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool
}

// OrchestratorConfig holds dispatch-wide settings
type OrchestratorConfig struct {
	// AdminNotifyEmails always receive booking emails in addition to the business list
	AdminNotifyEmails []string
	// SiteOrigin is used for booking links when the business has none
	SiteOrigin string
	// DefaultTimezone is used when the business has no timezone
	DefaultTimezone string
}

// Orchestrator fans a booking event out to every channel and participant
type Orchestrator struct {
	bookings BookingFetcher
	resolver ParticipantResolver
	email    EmailChannel
	whatsapp MessengerChannel
	telegram MessengerChannel
	cfg      OrchestratorConfig
	logger   *zap.Logger
}

func NewOrchestrator(
	bookings BookingFetcher,
	resolver ParticipantResolver,
	email EmailChannel,
	whatsapp MessengerChannel,
	telegram MessengerChannel,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		bookings: bookings,
		resolver: resolver,
		email:    email,
		whatsapp: whatsapp,
		telegram: telegram,
		cfg:      cfg,
		logger:   logger,
	}
}

// SendNotifications loads the booking and dispatches the event. Only a failure to
// load the booking is returned; per-recipient failures lower the counts and are logged.
func (o *Orchestrator) SendNotifications(ctx context.Context, bookingID string, event model.EventType) (model.NotificationResult, error) {
	if !event.IsValid() {
		return model.NotificationResult{}, fmt.Errorf("invalid event type %q", event)
	}

	row, err := o.bookings.GetBookingRow(ctx, bookingID)
	if err != nil {
		return model.NotificationResult{}, fmt.Errorf("failed to fetch booking %s: %w", bookingID, err)
	}

	return o.Dispatch(ctx, row, event)
}

// Dispatch sends notifications for a booking row already in hand
func (o *Orchestrator) Dispatch(ctx context.Context, row *model.BookingRow, event model.EventType) (model.NotificationResult, error) {
	if !event.IsValid() {
		return model.NotificationResult{}, fmt.Errorf("invalid event type %q", event)
	}
	if row == nil {
		return model.NotificationResult{}, fmt.Errorf("booking row is nil")
	}

	// Step 1: Normalise joins
	nb, err := row.Normalize()
	if err != nil {
		return model.NotificationResult{}, fmt.Errorf("failed to normalize booking %s: %w", row.ID, err)
	}

	log := o.logger.With(
		zap.String("booking_id", nb.Booking.ID),
		zap.String("event", string(event)))
	log.Debug("Dispatching booking notifications")

	// Step 2: Resolve participants concurrently
	var client, staff, owner model.ParticipantData
	var resolve errgroup.Group
	resolve.Go(func() error {
		return o.settle(log, "resolve client", func() { client = o.resolver.GetClientData(ctx, nb.Booking) })
	})
	resolve.Go(func() error {
		return o.settle(log, "resolve staff", func() { staff = o.resolver.GetStaffData(ctx, nb.Staff) })
	})
	resolve.Go(func() error {
		return o.settle(log, "resolve owner", func() { owner = o.resolver.GetOwnerData(ctx, nb.Business) })
	})
	resolve.Wait()

	// Step 3: Assemble the shared payload
	details := o.buildDetails(nb, client)

	// Step 4: Email recipients
	recipients := BuildEmailRecipients(client, staff, owner, o.adminEmails(nb.Business))

	// Step 5: Fan out across channels
	var result model.NotificationResult
	var channels errgroup.Group
	channels.Go(func() error {
		if o.email == nil {
			return nil
		}
		return o.settle(log, "email channel", func() {
			result.EmailsSent = o.email.SendNotifications(ctx, recipients, details, event)
		})
	})
	channels.Go(func() error {
		result.WhatsAppSent = o.sendMessenger(ctx, log, "whatsapp", o.whatsapp, client, staff, owner, details, event)
		return nil
	})
	channels.Go(func() error {
		result.TelegramSent = o.sendMessenger(ctx, log, "telegram", o.telegram, client, staff, owner, details, event)
		return nil
	})
	channels.Wait()

	log.Info("Booking notifications dispatched",
		zap.Int("email_recipients", len(recipients)),
		zap.Int("emails_sent", result.EmailsSent),
		zap.Int("whatsapp_sent", result.WhatsAppSent),
		zap.Int("telegram_sent", result.TelegramSent))

	return result, nil
}

// sendMessenger sends to client, staff and owner concurrently and counts successes.
// Each send settles independently.
func (o *Orchestrator) sendMessenger(
	ctx context.Context,
	log *zap.Logger,
	channel string,
	svc MessengerChannel,
	client, staff, owner model.ParticipantData,
	d model.BookingDetails,
	event model.EventType,
) int {
	if svc == nil {
		return 0
	}

	sends := []struct {
		role model.ParticipantRole
		fn   func() bool
	}{
		{model.RoleClient, func() bool { return svc.SendToClient(ctx, client, d, event) }},
		{model.RoleStaff, func() bool { return svc.SendToStaff(ctx, staff, d, event) }},
		{model.RoleOwner, func() bool { return svc.SendToOwner(ctx, owner, d, event) }},
	}

	ok := make([]bool, len(sends))
	var g errgroup.Group
	for i, send := range sends {
		i, send := i, send
		g.Go(func() error {
			return o.settle(log, channel+" "+string(send.role), func() { ok[i] = send.fn() })
		})
	}
	g.Wait()

	count := 0
	for _, sent := range ok {
		if sent {
			count++
		}
	}
	return count
}

// settle runs fn, converting a panic into a logged error so siblings are unaffected
func (o *Orchestrator) settle(log *zap.Logger, task string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", task, r)
			log.Error("Notification task failed", zap.String("task", task), zap.Error(err))
		}
	}()
	fn()
	return nil
}

func (o *Orchestrator) buildDetails(nb *model.NormalizedBooking, client model.ParticipantData) model.BookingDetails {
	b := nb.Booking
	d := model.BookingDetails{
		BookingID:   b.ID,
		Status:      b.Status,
		StartAt:     b.StartAt,
		EndAt:       b.EndAt,
		ClientName:  firstOf(client.Name, b.ClientName),
		ClientPhone: firstOf(client.Phone, b.ClientPhone),
		ClientEmail: firstOf(client.Email, b.ClientEmail),
		SiteOrigin:  o.cfg.SiteOrigin,
		Timezone:    o.cfg.DefaultTimezone,
	}

	if nb.Service != nil {
		d.ServiceName = nb.Service.Name
		d.ServiceDuration = nb.Service.DurationMinutes
		d.ServicePrice = nb.Service.Price
	}
	if nb.Staff != nil {
		d.StaffName = nb.Staff.FullName
	}
	if nb.Business != nil {
		d.BusinessName = nb.Business.Name
		if nb.Business.SiteOrigin != "" {
			d.SiteOrigin = nb.Business.SiteOrigin
		}
		if nb.Business.Timezone != "" {
			d.Timezone = nb.Business.Timezone
		}
	}
	if nb.Branch != nil {
		d.BranchName = nb.Branch.Name
		d.BranchAddress = firstOf(nb.Branch.Address)
		d.BranchPhone = firstOf(nb.Branch.Phone)
	}

	return d
}

// adminEmails is the business's notification list followed by the configured admins
func (o *Orchestrator) adminEmails(biz *model.Business) []string {
	var admins []string
	if biz != nil {
		admins = append(admins, biz.EmailNotifyTo...)
	}
	return append(admins, o.cfg.AdminNotifyEmails...)
}

func firstOf(values ...*string) string {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s := strings.TrimSpace(*v); s != "" {
			return s
		}
	}
	return ""
}
