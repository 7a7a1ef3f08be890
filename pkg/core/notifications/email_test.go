package notifications

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/clients/emailclient"
	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// mockEmailSender implements EmailSender for testing.
// responses are consumed in order; once exhausted every send succeeds.
type mockEmailSender struct {
	mu        sync.Mutex
	sent      []emailclient.Message
	responses []error
	failFor   map[string]error
}

func (m *mockEmailSender) Send(ctx context.Context, msg emailclient.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)

	if err, ok := m.failFor[msg.To[0]]; ok {
		return "", err
	}
	if len(m.responses) > 0 {
		err := m.responses[0]
		m.responses = m.responses[1:]
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("msg-%d", len(m.sent)), nil
}

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func rateLimited(retryAfter time.Duration) error {
	return &emailclient.APIError{StatusCode: http.StatusTooManyRequests, RetryAfter: retryAfter}
}

func testDetails() model.BookingDetails {
	return model.BookingDetails{
		BookingID:    "b1",
		Status:       model.BookingStatusConfirmed,
		StartAt:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		EndAt:        time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
		ServiceName:  "Manicure",
		StaffName:    "Anna",
		BusinessName: "Nail Studio",
		ClientName:   "Jane",
		SiteOrigin:   "https://salon.test",
	}
}

func newTestEmailService(sender EmailSender, sleeper *sleepRecorder) *EmailService {
	return NewEmailService(sender, EmailConfig{From: "Salon <bookings@salon.test>", ReplyTo: "desk@salon.test"}, zap.NewNop(),
		WithSendInterval(0),
		WithSleep(sleeper.sleep))
}

func TestEmailService_PersonalizesAndAttachesICSForClientOnly(t *testing.T) {
	sender := &mockEmailSender{}
	svc := newTestEmailService(sender, &sleepRecorder{})

	sent := svc.SendNotifications(context.Background(), []model.EmailRecipient{
		{Email: "jane@example.com", Name: "Jane", Role: model.RoleClient, WithICS: true},
		{Email: "anna@salon.test", Name: "Anna", Role: model.RoleStaff},
	}, testDetails(), model.EventConfirm)

	assert.Equal(t, 2, sent)
	require.Len(t, sender.sent, 2)

	client := sender.sent[0]
	assert.Equal(t, []string{"jane@example.com"}, client.To)
	assert.Equal(t, "desk@salon.test", client.ReplyTo)
	assert.Contains(t, client.HTML, "Hello, Jane!")
	assert.NotContains(t, client.HTML, "{{greeting}}")
	require.Len(t, client.Attachments, 1)
	ics, err := base64.StdEncoding.DecodeString(client.Attachments[0].Content)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ics), "BEGIN:VCALENDAR"))

	staff := sender.sent[1]
	assert.Contains(t, staff.HTML, "Hello, Anna!")
	assert.Empty(t, staff.Attachments)
	assert.Equal(t, client.Subject, staff.Subject)
}

func TestEmailService_RetriesOnceOnRateLimit(t *testing.T) {
	sender := &mockEmailSender{responses: []error{rateLimited(0)}}
	sleeper := &sleepRecorder{}
	svc := newTestEmailService(sender, sleeper)

	sent := svc.SendNotifications(context.Background(), []model.EmailRecipient{
		{Email: "jane@example.com", Role: model.RoleClient},
	}, testDetails(), model.EventConfirm)

	assert.Equal(t, 1, sent)
	assert.Len(t, sender.sent, 2)
	assert.Equal(t, []time.Duration{DefaultRetryAfter}, sleeper.waits)
}

func TestEmailService_HonorsRetryAfter(t *testing.T) {
	sender := &mockEmailSender{responses: []error{rateLimited(5 * time.Second)}}
	sleeper := &sleepRecorder{}
	svc := newTestEmailService(sender, sleeper)

	svc.SendNotifications(context.Background(), []model.EmailRecipient{
		{Email: "jane@example.com", Role: model.RoleClient},
	}, testDetails(), model.EventConfirm)

	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.waits)
}

func TestEmailService_GivesUpAfterSecondRateLimit(t *testing.T) {
	sender := &mockEmailSender{responses: []error{rateLimited(0), rateLimited(0)}}
	sleeper := &sleepRecorder{}
	svc := newTestEmailService(sender, sleeper)

	sent := svc.SendNotifications(context.Background(), []model.EmailRecipient{
		{Email: "jane@example.com", Role: model.RoleClient},
		{Email: "anna@salon.test", Role: model.RoleStaff},
	}, testDetails(), model.EventConfirm)

	// First recipient fails after one retry; second still goes out
	assert.Equal(t, 1, sent)
	assert.Len(t, sender.sent, 3)
	assert.Len(t, sleeper.waits, 1)
}

func TestEmailService_NoRetryOnOtherErrors(t *testing.T) {
	sender := &mockEmailSender{failFor: map[string]error{
		"jane@example.com": &emailclient.APIError{StatusCode: http.StatusUnprocessableEntity},
	}}
	sleeper := &sleepRecorder{}
	svc := newTestEmailService(sender, sleeper)

	sent := svc.SendNotifications(context.Background(), []model.EmailRecipient{
		{Email: "jane@example.com", Role: model.RoleClient},
		{Email: "anna@salon.test", Role: model.RoleStaff},
		{Email: "owner@salon.test", Role: model.RoleOwner},
	}, testDetails(), model.EventCancel)

	assert.Equal(t, 2, sent)
	assert.Len(t, sender.sent, 3)
	assert.Empty(t, sleeper.waits)
}

func TestEmailService_Unconfigured(t *testing.T) {
	svc := NewEmailService(nil, EmailConfig{From: "bookings@salon.test"}, zap.NewNop())
	assert.Equal(t, 0, svc.SendNotifications(context.Background(), []model.EmailRecipient{
		{Email: "jane@example.com"},
	}, testDetails(), model.EventConfirm))

	sender := &mockEmailSender{}
	svc = NewEmailService(sender, EmailConfig{}, zap.NewNop())
	assert.Equal(t, 0, svc.SendNotifications(context.Background(), []model.EmailRecipient{
		{Email: "jane@example.com"},
	}, testDetails(), model.EventConfirm))
	assert.Empty(t, sender.sent)
}

func TestEmailService_SpacesRequests(t *testing.T) {
	sender := &mockEmailSender{}
	interval := 40 * time.Millisecond
	svc := NewEmailService(sender, EmailConfig{From: "bookings@salon.test"}, zap.NewNop(), WithSendInterval(interval))

	start := time.Now()
	sent := svc.SendNotifications(context.Background(), []model.EmailRecipient{
		{Email: "a@example.com"},
		{Email: "b@example.com"},
		{Email: "c@example.com"},
	}, testDetails(), model.EventHold)

	assert.Equal(t, 3, sent)
	assert.GreaterOrEqual(t, time.Since(start), 2*interval-5*time.Millisecond)
}

func TestEmailService_StopsWhenContextCancelled(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewEmailService(sender, EmailConfig{From: "bookings@salon.test"}, zap.NewNop(), WithSendInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent := svc.SendNotifications(ctx, []model.EmailRecipient{
		{Email: "a@example.com"},
		{Email: "b@example.com"},
	}, testDetails(), model.EventHold)

	assert.Equal(t, 0, sent)
	assert.Empty(t, sender.sent)
}
