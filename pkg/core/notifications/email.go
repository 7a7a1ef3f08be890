package notifications

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jakechorley/salon-bookings/pkg/clients/emailclient"
	"github.com/jakechorley/salon-bookings/pkg/core/messages"
	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

const (
	// EmailSendInterval is the minimum spacing between provider requests
	EmailSendInterval = 600 * time.Millisecond
	// DefaultRetryAfter is used when a 429 response carries no Retry-After header
	DefaultRetryAfter = 2000 * time.Millisecond
)

// EmailSender sends one email through the provider
type EmailSender interface {
	Send(ctx context.Context, msg emailclient.Message) (string, error)
}

// EmailConfig holds the sender identity
type EmailConfig struct {
	From    string
	ReplyTo string
}

// EmailService sends booking emails to a list of recipients, one at a time
type EmailService struct {
	client     EmailSender
	cfg        EmailConfig
	configured bool
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	logger     *zap.Logger
}

type EmailOption func(*EmailService)

// WithSendInterval overrides the spacing between provider requests. Zero disables spacing.
func WithSendInterval(interval time.Duration) EmailOption {
	return func(s *EmailService) {
		if interval <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithSleep replaces the Retry-After wait, for tests
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) EmailOption {
	return func(s *EmailService) {
		s.sleep = sleep
	}
}

// NewEmailService creates the email channel. A nil client or empty sender address
// leaves the channel unconfigured: a warning is logged once and every send is a no-op.
func NewEmailService(client EmailSender, cfg EmailConfig, logger *zap.Logger, opts ...EmailOption) *EmailService {
	s := &EmailService{
		client:     client,
		cfg:        cfg,
		configured: client != nil && cfg.From != "",
		limiter:    rate.NewLimiter(rate.Every(EmailSendInterval), 1),
		sleep:      sleepCtx,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.configured {
		logger.Warn("Email channel is not configured, email notifications are disabled")
	}
	return s
}

// SendNotifications sends the booking email to each recipient in order and
// returns how many were accepted by the provider. A failure for one recipient
// never stops the rest.
func (s *EmailService) SendNotifications(ctx context.Context, recipients []model.EmailRecipient, d model.BookingDetails, event model.EventType) int {
	if !s.configured || len(recipients) == 0 {
		return 0
	}

	subject := messages.EmailSubject(d, event)
	baseHTML := messages.BuildEmailHTML(d, event)
	text := messages.BuildEmailText(d, event)

	var icsAttachment *emailclient.Attachment
	for _, r := range recipients {
		if r.WithICS {
			cal := messages.BuildICS(d, event, s.now())
			icsAttachment = &emailclient.Attachment{
				Filename:    messages.ICSFilename,
				Content:     base64.StdEncoding.EncodeToString([]byte(cal)),
				ContentType: "text/calendar; charset=utf-8",
			}
			break
		}
	}

	sent := 0
	for _, r := range recipients {
		if r.Email == "" {
			s.logger.Debug("Skipping email recipient without address", zap.String("role", string(r.Role)))
			continue
		}

		msg := emailclient.Message{
			From:    s.cfg.From,
			To:      []string{r.Email},
			Subject: subject,
			HTML:    messages.Personalize(baseHTML, r.Name),
			Text:    text,
			ReplyTo: s.cfg.ReplyTo,
		}
		if r.WithICS && icsAttachment != nil {
			msg.Attachments = []emailclient.Attachment{*icsAttachment}
		}

		id, err := s.deliver(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Warn("Email batch cancelled",
					zap.String("booking_id", d.BookingID),
					zap.Int("sent", sent),
					zap.Error(ctx.Err()))
				return sent
			}
			s.logger.Error("Failed to send booking email",
				zap.String("booking_id", d.BookingID),
				zap.String("role", string(r.Role)),
				zap.String("email", r.Email),
				zap.Error(err))
			continue
		}

		sent++
		s.logger.Info("Sent booking email",
			zap.String("booking_id", d.BookingID),
			zap.String("role", string(r.Role)),
			zap.String("email", r.Email),
			zap.String("message_id", id))
	}

	return sent
}

// deliver sends one message, retrying once if the provider rate-limits it
func (s *EmailService) deliver(ctx context.Context, msg emailclient.Message) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	id, err := s.client.Send(ctx, msg)
	var apiErr *emailclient.APIError
	if err == nil || !errors.As(err, &apiErr) || !apiErr.IsRateLimited() {
		return id, err
	}

	wait := apiErr.RetryAfter
	if wait <= 0 {
		wait = DefaultRetryAfter
	}
	s.logger.Warn("Email provider rate limited, retrying once",
		zap.Strings("to", msg.To),
		zap.Duration("retry_after", wait))

	if err := s.sleep(ctx, wait); err != nil {
		return "", err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.client.Send(ctx, msg)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
