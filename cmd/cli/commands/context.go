package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/internal/config"
	"github.com/jakechorley/salon-bookings/pkg/clients/emailclient"
	"github.com/jakechorley/salon-bookings/pkg/clients/telegramclient"
	"github.com/jakechorley/salon-bookings/pkg/clients/whatsappclient"
	"github.com/jakechorley/salon-bookings/pkg/core/notifications"
	"github.com/jakechorley/salon-bookings/pkg/core/participants"
	"github.com/jakechorley/salon-bookings/pkg/core/shiftdata"
	"github.com/jakechorley/salon-bookings/pkg/postgres"
	"github.com/jakechorley/salon-bookings/pkg/sanitizer"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database *postgres.DB
	Logger   *zap.Logger
	Ctx      context.Context
}

// Orchestrator wires the notification channels from the configured secrets.
// A channel without credentials is left unconfigured and logs once.
func (app *AppContext) Orchestrator() (*notifications.Orchestrator, error) {
	secrets := app.Cfg.Secrets

	var emailSender notifications.EmailSender
	if secrets.ResendAPIKey != "" {
		emailSender = emailclient.NewClient(secrets.ResendAPIKey)
	}
	email := notifications.NewEmailService(emailSender, notifications.EmailConfig{
		From:    app.Cfg.Email.From,
		ReplyTo: app.Cfg.Email.ReplyTo,
	}, app.Logger)

	var whatsappSender notifications.WhatsAppSender
	if secrets.TwilioAccountSID != "" && secrets.TwilioAuthToken != "" && secrets.TwilioWhatsAppNumber != "" {
		whatsappSender = whatsappclient.NewClient(secrets.TwilioAccountSID, secrets.TwilioAuthToken, secrets.TwilioWhatsAppNumber)
	}
	regions := app.Cfg.PhoneRegions
	if len(regions) == 0 {
		regions = sanitizer.DefaultRegions
	}
	whatsapp := notifications.NewWhatsAppService(whatsappSender, regions, app.Logger)

	var telegramSender notifications.TelegramSender
	if secrets.TelegramBotToken != "" {
		client, err := telegramclient.NewClient(secrets.TelegramBotToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram client: %w", err)
		}
		telegramSender = client
	}
	telegram := notifications.NewTelegramService(telegramSender, app.Logger)

	resolver := participants.NewService(app.Database, app.Database, app.Logger)

	return notifications.NewOrchestrator(
		app.Database,
		resolver,
		email,
		whatsapp,
		telegram,
		notifications.OrchestratorConfig{
			AdminNotifyEmails: app.Cfg.AdminNotifyEmails,
			SiteOrigin:        app.Cfg.SiteOrigin,
			DefaultTimezone:   app.Cfg.DefaultTimezone,
		},
		app.Logger,
	), nil
}

// Loader builds a finance loader backed by Redis when REDIS_URL is set,
// otherwise by an in-process cache
func (app *AppContext) Loader() (*shiftdata.Loader, error) {
	var cache shiftdata.Cache
	if url := app.Cfg.Secrets.RedisURL; url != "" {
		client, err := shiftdata.NewRedisClient(app.Ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cache = shiftdata.NewRedisCache(client, app.Cfg.TTLs(), app.Logger)
		app.Logger.Debug("Using redis finance cache")
	} else {
		cache = shiftdata.NewMemoryCache(app.Cfg.TTLs())
	}

	return shiftdata.NewLoader(app.Database, cache, app.Logger), nil
}
