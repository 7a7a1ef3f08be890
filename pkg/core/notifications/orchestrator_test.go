package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
	"github.com/jakechorley/salon-bookings/pkg/core/participants"
)

// mockBookingFetcher implements BookingFetcher for testing
type mockBookingFetcher struct {
	row *model.BookingRow
	err error
}

func (m *mockBookingFetcher) GetBookingRow(ctx context.Context, bookingID string) (*model.BookingRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.row, nil
}

type mockAuthLookup struct {
	users map[string]*participants.AuthUser
}

func (m *mockAuthLookup) GetAuthUser(ctx context.Context, userID string) (*participants.AuthUser, error) {
	return m.users[userID], nil
}

type mockProfileLookup struct {
	profiles map[string]*participants.Profile
}

func (m *mockProfileLookup) GetProfile(ctx context.Context, userID string) (*participants.Profile, error) {
	return m.profiles[userID], nil
}

// recordingEmailChannel implements EmailChannel and captures the recipient list
type recordingEmailChannel struct {
	mu         sync.Mutex
	recipients []model.EmailRecipient
	details    model.BookingDetails
}

func (r *recordingEmailChannel) SendNotifications(ctx context.Context, recipients []model.EmailRecipient, d model.BookingDetails, event model.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipients = recipients
	r.details = d
	return len(recipients)
}

// panickyMessenger implements MessengerChannel; the staff send panics
type panickyMessenger struct{}

func (panickyMessenger) SendToClient(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	return true
}

func (panickyMessenger) SendToStaff(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	panic("staff send exploded")
}

func (panickyMessenger) SendToOwner(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	return true
}

func boolp(b bool) *bool { return &b }

func b1Row() *model.BookingRow {
	return &model.BookingRow{
		Booking: model.Booking{
			ID:          "b1",
			Status:      model.BookingStatusConfirmed,
			StartAt:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			EndAt:       time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
			ClientID:    str("user-client"),
			ClientPhone: str("+12015550123"),
		},
		Service:  json.RawMessage(`[{"id":"svc-1","name":"Manicure","duration_min":60,"price":"1500"}]`),
		Staff:    json.RawMessage(`{"id":"staff-1","full_name":"Anna","email":"anna@salon.test"}`),
		Business: json.RawMessage(`[{"id":"biz-1","name":"Nail Studio","owner_id":"user-owner","email_notify_to":["Desk@Salon.test"],"tz":"Europe/Berlin","site_origin":"https://salon.test"}]`),
		Branch:   json.RawMessage(`null`),
	}
}

func b1Resolver() *participants.Service {
	auth := &mockAuthLookup{users: map[string]*participants.AuthUser{
		"user-client": {ID: "user-client", Email: str("jane@example.com"), Name: str("Jane")},
		"user-owner":  {ID: "user-owner", Email: str("owner.personal@example.com"), Name: str("Olga")},
	}}
	profiles := &mockProfileLookup{profiles: map[string]*participants.Profile{
		"user-client": {
			UserID:         "user-client",
			TelegramID:     str("555"),
			NotifyEmail:    boolp(true),
			NotifyWhatsApp: boolp(false),
			NotifyTelegram: boolp(false),
		},
	}}
	return participants.NewService(auth, profiles, zap.NewNop())
}

func TestOrchestrator_ConfirmedBookingEmailOnlyClient(t *testing.T) {
	email := &recordingEmailChannel{}
	whatsappSender := &mockWhatsAppSender{}
	telegramSender := &mockTelegramSender{}
	orch := NewOrchestrator(
		&mockBookingFetcher{row: b1Row()},
		b1Resolver(),
		email,
		NewWhatsAppService(whatsappSender, []string{"US"}, zap.NewNop()),
		NewTelegramService(telegramSender, zap.NewNop()),
		OrchestratorConfig{},
		zap.NewNop(),
	)

	result, err := orch.SendNotifications(context.Background(), "b1", model.EventConfirm)
	require.NoError(t, err)

	require.Len(t, email.recipients, 3)
	assert.Equal(t, model.EmailRecipient{Email: "jane@example.com", Name: "Jane", Role: model.RoleClient, WithICS: true}, email.recipients[0])
	assert.Equal(t, model.EmailRecipient{Email: "anna@salon.test", Name: "Anna", Role: model.RoleStaff}, email.recipients[1])
	assert.Equal(t, model.EmailRecipient{Email: "Desk@Salon.test", Name: "Olga", Role: model.RoleOwner}, email.recipients[2])

	assert.Equal(t, model.NotificationResult{EmailsSent: 3, WhatsAppSent: 0, TelegramSent: 0}, result)
	assert.Empty(t, whatsappSender.to)
	assert.Empty(t, telegramSender.chats)

	d := email.details
	assert.Equal(t, "Manicure", d.ServiceName)
	assert.Equal(t, "Nail Studio", d.BusinessName)
	assert.Equal(t, "Jane", d.ClientName)
	assert.Equal(t, "Europe/Berlin", d.Timezone)
	assert.Equal(t, "https://salon.test/booking/b1", d.ManageURL())
}

func TestOrchestrator_FetchErrorIsReturned(t *testing.T) {
	orch := NewOrchestrator(
		&mockBookingFetcher{err: fmt.Errorf("connection refused")},
		b1Resolver(),
		&recordingEmailChannel{},
		nil,
		nil,
		OrchestratorConfig{},
		zap.NewNop(),
	)

	_, err := orch.SendNotifications(context.Background(), "b1", model.EventConfirm)

	assert.ErrorContains(t, err, "connection refused")
}

func TestOrchestrator_InvalidEvent(t *testing.T) {
	fetcher := &mockBookingFetcher{row: b1Row()}
	orch := NewOrchestrator(fetcher, b1Resolver(), &recordingEmailChannel{}, nil, nil, OrchestratorConfig{}, zap.NewNop())

	_, err := orch.SendNotifications(context.Background(), "b1", model.EventType("paid"))

	assert.Error(t, err)
}

func TestOrchestrator_PanickingSendIsNotCounted(t *testing.T) {
	orch := NewOrchestrator(
		&mockBookingFetcher{row: b1Row()},
		b1Resolver(),
		&recordingEmailChannel{},
		panickyMessenger{},
		panickyMessenger{},
		OrchestratorConfig{},
		zap.NewNop(),
	)

	result, err := orch.SendNotifications(context.Background(), "b1", model.EventHold)

	require.NoError(t, err)
	assert.Equal(t, 2, result.WhatsAppSent)
	assert.Equal(t, 2, result.TelegramSent)
	assert.Equal(t, 3, result.EmailsSent)
}

func TestOrchestrator_ConfiguredAdminsAndFallbacks(t *testing.T) {
	email := &recordingEmailChannel{}
	row := b1Row()
	row.Business = json.RawMessage(`{"id":"biz-1","name":"Nail Studio","email_notify_to":["desk@salon.test","manager@salon.test"]}`)
	orch := NewOrchestrator(
		&mockBookingFetcher{row: row},
		b1Resolver(),
		email,
		nil,
		nil,
		OrchestratorConfig{
			AdminNotifyEmails: []string{"ops@platform.test", "MANAGER@salon.test"},
			SiteOrigin:        "https://book.platform.test",
			DefaultTimezone:   "UTC",
		},
		zap.NewNop(),
	)

	_, err := orch.SendNotifications(context.Background(), "b1", model.EventConfirm)
	require.NoError(t, err)

	var emails []string
	for _, r := range email.recipients {
		emails = append(emails, r.Email)
	}
	assert.Equal(t, []string{"jane@example.com", "anna@salon.test", "desk@salon.test", "manager@salon.test", "ops@platform.test"}, emails)
	assert.Equal(t, "https://book.platform.test", email.details.SiteOrigin)
	assert.Equal(t, "UTC", email.details.Timezone)
}

func TestBuildEmailRecipients_OwnerWinsOverAdmin(t *testing.T) {
	owner := model.ParticipantData{Email: str("owner@salon.test"), NotifyEmail: true}

	recipients := BuildEmailRecipients(model.ParticipantData{}, model.ParticipantData{}, owner,
		[]string{" OWNER@salon.test ", "admin@salon.test"})

	require.Len(t, recipients, 2)
	assert.Equal(t, model.RoleOwner, recipients[0].Role)
	assert.Equal(t, "owner@salon.test", recipients[0].Email)
	assert.Equal(t, model.RoleAdmin, recipients[1].Role)
	assert.False(t, recipients[1].WithICS)
}

func TestBuildEmailRecipients_AdminMatchingOptedOutOwnerIsSuppressed(t *testing.T) {
	owner := model.ParticipantData{Email: str("owner@salon.test"), NotifyEmail: false}

	recipients := BuildEmailRecipients(model.ParticipantData{}, model.ParticipantData{}, owner,
		[]string{"owner@salon.test"})

	assert.Empty(t, recipients)
}

func TestBuildEmailRecipients_DedupFirstOccurrenceWins(t *testing.T) {
	client := model.ParticipantData{Email: str("Shared@Example.com "), Name: str("Jane"), NotifyEmail: true}
	staff := model.ParticipantData{Email: str("shared@example.com"), Name: str("Anna"), NotifyEmail: true}

	recipients := BuildEmailRecipients(client, staff, model.ParticipantData{}, nil)

	require.Len(t, recipients, 1)
	assert.Equal(t, model.RoleClient, recipients[0].Role)
	assert.Equal(t, "Shared@Example.com", recipients[0].Email)
	assert.True(t, recipients[0].WithICS)
}

func TestBuildEmailRecipients_SkipsOptOutAndMissingEmail(t *testing.T) {
	client := model.ParticipantData{Email: str("jane@example.com"), NotifyEmail: false}
	staff := model.ParticipantData{NotifyEmail: true}
	owner := model.ParticipantData{Email: str("   "), NotifyEmail: true}

	assert.Empty(t, BuildEmailRecipients(client, staff, owner, []string{"", "  "}))
}

func TestBuildEmailRecipients_AdminOrderDoesNotChangeMembership(t *testing.T) {
	owner := model.ParticipantData{Email: str("owner@salon.test"), NotifyEmail: true}
	admins := []string{"a@salon.test", "owner@salon.test", "b@salon.test"}
	reversed := []string{"b@salon.test", "owner@salon.test", "a@salon.test"}

	set := func(rs []model.EmailRecipient) map[string]model.ParticipantRole {
		out := make(map[string]model.ParticipantRole)
		for _, r := range rs {
			out[r.Email] = r.Role
		}
		return out
	}

	assert.Equal(t,
		set(BuildEmailRecipients(model.ParticipantData{}, model.ParticipantData{}, owner, admins)),
		set(BuildEmailRecipients(model.ParticipantData{}, model.ParticipantData{}, owner, reversed)))
}
