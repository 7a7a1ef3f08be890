package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

var ErrInvalidMessage = errors.New("invalid booking event")

// BookingEvent is the payload published when a booking changes status
type BookingEvent struct {
	BookingID string          `json:"booking_id"`
	Event     model.EventType `json:"event"`
}

// Notifier sends the notifications for a booking event
type Notifier interface {
	SendNotifications(ctx context.Context, bookingID string, event model.EventType) (model.NotificationResult, error)
}

// MessageReader is the subset of *kafka.Reader the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderConfig configures a Kafka consumer-group reader
type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewReader creates a consumer-group reader with manual commits
func NewReader(cfg ReaderConfig, logger *zap.Logger) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}

	sugar := logger.Sugar()
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
		Logger:      kafka.LoggerFunc(sugar.Debugf),
		ErrorLogger: kafka.LoggerFunc(sugar.Errorf),
	}), nil
}

// Consumer turns booking events into notifications. Every fetched message is
// committed once handled, including malformed ones and failed sends.
type Consumer struct {
	reader   MessageReader
	notifier Notifier
	logger   *zap.Logger
	backoff  time.Duration
}

func NewConsumer(reader MessageReader, notifier Notifier, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:   reader,
		notifier: notifier,
		logger:   logger,
		backoff:  time.Second,
	}
}

// Run consumes until ctx is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Failed to fetch booking event", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}

		c.Handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Failed to commit booking event",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}
}

// Handle processes a single message. Failures are logged, never returned.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) {
	log := c.logger.With(
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset))

	evt, err := Decode(msg.Value)
	if err != nil {
		log.Warn("Skipping malformed booking event", zap.Error(err))
		return
	}

	log = log.With(zap.String("booking_id", evt.BookingID), zap.String("event", string(evt.Event)))

	result, err := c.notifier.SendNotifications(ctx, evt.BookingID, evt.Event)
	if err != nil {
		log.Error("Failed to send booking notifications", zap.Error(err))
		return
	}

	log.Info("Booking notifications sent",
		zap.Int("emails", result.EmailsSent),
		zap.Int("whatsapp", result.WhatsAppSent),
		zap.Int("telegram", result.TelegramSent))
}

// Decode parses and validates a booking event payload
func Decode(data []byte) (BookingEvent, error) {
	var evt BookingEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return BookingEvent{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	evt.BookingID = strings.TrimSpace(evt.BookingID)
	if evt.BookingID == "" {
		return BookingEvent{}, fmt.Errorf("%w: booking_id is required", ErrInvalidMessage)
	}

	event, err := model.ParseEventType(string(evt.Event))
	if err != nil {
		return BookingEvent{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	evt.Event = event

	return evt, nil
}
