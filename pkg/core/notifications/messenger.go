package notifications

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/messages"
	"github.com/jakechorley/salon-bookings/pkg/core/model"
	"github.com/jakechorley/salon-bookings/pkg/sanitizer"
)

// WhatsAppSender sends a text to an E.164 phone number
type WhatsAppSender interface {
	Send(ctx context.Context, to, text string) (string, error)
}

// TelegramSender sends an HTML-formatted text to a chat
type TelegramSender interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
}

// WhatsAppService sends booking notifications over WhatsApp
type WhatsAppService struct {
	client     WhatsAppSender
	regions    []string
	configured bool
	logger     *zap.Logger
}

// NewWhatsAppService creates the WhatsApp channel. Numbers without a country code
// are resolved against regions in order.
func NewWhatsAppService(client WhatsAppSender, regions []string, logger *zap.Logger) *WhatsAppService {
	s := &WhatsAppService{
		client:     client,
		regions:    regions,
		configured: client != nil,
		logger:     logger,
	}
	if !s.configured {
		logger.Warn("WhatsApp channel is not configured, WhatsApp notifications are disabled")
	}
	return s
}

// SendToClient requires the client's WhatsApp number to be verified
func (s *WhatsAppService) SendToClient(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	return s.send(ctx, model.RoleClient, p, d, event)
}

func (s *WhatsAppService) SendToStaff(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	return s.send(ctx, model.RoleStaff, p, d, event)
}

func (s *WhatsAppService) SendToOwner(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	return s.send(ctx, model.RoleOwner, p, d, event)
}

func (s *WhatsAppService) send(ctx context.Context, role model.ParticipantRole, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	log := s.logger.With(
		zap.String("channel", "whatsapp"),
		zap.String("booking_id", d.BookingID),
		zap.String("role", string(role)))

	if !s.configured {
		return false
	}
	if p.Phone == nil {
		log.Debug("Skipping: no phone number")
		return false
	}
	if !p.NotifyWhatsApp {
		log.Debug("Skipping: not opted in")
		return false
	}
	if role == model.RoleClient && !p.WhatsAppVerified {
		log.Debug("Skipping: phone not verified")
		return false
	}

	phone, err := sanitizer.NormalizePhone(*p.Phone, s.regions)
	if err != nil {
		log.Warn("Skipping: phone number could not be normalized", zap.Error(err))
		return false
	}

	sid, err := s.client.Send(ctx, phone, messages.BuildWhatsAppText(d, event))
	if err != nil {
		log.Error("Failed to send WhatsApp notification", zap.Error(err))
		return false
	}

	log.Info("Sent WhatsApp notification", zap.String("message_sid", sid))
	return true
}

// TelegramService sends booking notifications through a Telegram bot
type TelegramService struct {
	client     TelegramSender
	configured bool
	logger     *zap.Logger
}

func NewTelegramService(client TelegramSender, logger *zap.Logger) *TelegramService {
	s := &TelegramService{
		client:     client,
		configured: client != nil,
		logger:     logger,
	}
	if !s.configured {
		logger.Warn("Telegram channel is not configured, Telegram notifications are disabled")
	}
	return s
}

// SendToClient requires the client's Telegram account to be verified
func (s *TelegramService) SendToClient(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	return s.send(ctx, model.RoleClient, p, d, event)
}

func (s *TelegramService) SendToStaff(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	return s.send(ctx, model.RoleStaff, p, d, event)
}

func (s *TelegramService) SendToOwner(ctx context.Context, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	return s.send(ctx, model.RoleOwner, p, d, event)
}

func (s *TelegramService) send(ctx context.Context, role model.ParticipantRole, p model.ParticipantData, d model.BookingDetails, event model.EventType) bool {
	log := s.logger.With(
		zap.String("channel", "telegram"),
		zap.String("booking_id", d.BookingID),
		zap.String("role", string(role)))

	if !s.configured {
		return false
	}
	if p.TelegramID == nil {
		log.Debug("Skipping: no telegram chat id")
		return false
	}
	if !p.NotifyTelegram {
		log.Debug("Skipping: not opted in")
		return false
	}
	if role == model.RoleClient && !p.TelegramVerified {
		log.Debug("Skipping: telegram not verified")
		return false
	}

	chatID, err := strconv.ParseInt(*p.TelegramID, 10, 64)
	if err != nil {
		log.Warn("Skipping: telegram chat id is not numeric", zap.String("telegram_id", *p.TelegramID))
		return false
	}

	messageID, err := s.client.Send(ctx, chatID, messages.BuildTelegramText(d, event))
	if err != nil {
		log.Error("Failed to send Telegram notification", zap.Error(err))
		return false
	}

	log.Info("Sent Telegram notification", zap.Int("message_id", messageID))
	return true
}
