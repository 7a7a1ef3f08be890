package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/salon-bookings/pkg/core/shiftdata"
	"github.com/jakechorley/salon-bookings/pkg/db"
)

// Split is a revenue split between the master and the salon
type Split struct {
	PercentMaster string  `yaml:"percentMaster" validate:"required,numeric"`
	PercentSalon  string  `yaml:"percentSalon" validate:"required,numeric"`
	HourlyRate    *string `yaml:"hourlyRate,omitempty" validate:"omitempty,numeric"`
}

// ShiftOverride replaces the default split for shifts on dates matching RRule
type ShiftOverride struct {
	RRule string `yaml:"rrule" validate:"required"`
	Split `yaml:",inline"`
}

// EmailConfig holds the sender identity for outgoing email
type EmailConfig struct {
	From    string `yaml:"from,omitempty"`
	ReplyTo string `yaml:"replyTo,omitempty" validate:"omitempty,email"`
}

// CacheConfig overrides the default finance cache TTLs
type CacheConfig struct {
	Static    time.Duration `yaml:"static,omitempty" validate:"min=0"`
	Bookings  time.Duration `yaml:"bookings,omitempty" validate:"min=0"`
	Shift     time.Duration `yaml:"shift,omitempty" validate:"min=0"`
	Aggregate time.Duration `yaml:"aggregate,omitempty" validate:"min=0"`
}

// KafkaConfig configures the booking event consumer
type KafkaConfig struct {
	Topic   string `yaml:"topic,omitempty"`
	GroupID string `yaml:"groupID,omitempty"`
}

// Secrets are read from the environment, never from the YAML file
type Secrets struct {
	DatabaseURL          string
	RedisURL             string
	ResendAPIKey         string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	TelegramBotToken     string
	KafkaBrokers         []string
}

// Config represents the application configuration
type Config struct {
	Email             EmailConfig     `yaml:"email"`
	AdminNotifyEmails []string        `yaml:"adminNotifyEmails,omitempty" validate:"dive,email"`
	SiteOrigin        string          `yaml:"siteOrigin,omitempty" validate:"omitempty,url"`
	DefaultTimezone   string          `yaml:"defaultTimezone" validate:"required"`
	PhoneRegions      []string        `yaml:"phoneRegions,omitempty" validate:"dive,len=2,uppercase"`
	DefaultSplit      Split           `yaml:"defaultSplit"`
	ShiftOverrides    []ShiftOverride `yaml:"shiftOverrides,omitempty" validate:"dive"`
	Cache             CacheConfig     `yaml:"cache,omitempty"`
	Kafka             KafkaConfig     `yaml:"kafka,omitempty"`

	Secrets Secrets `yaml:"-"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads salon_config.<env>.yaml and the environment's secrets.
// Secrets are read from .env.<env> and .env when present, without overriding
// variables already set in the process environment.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(fmt.Sprintf("salon_config.%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		return nil, err
	}

	for _, envFile := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	cfg.Secrets = SecretsFromEnv()

	return cfg, nil
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SecretsFromEnv reads provider credentials from the process environment
func SecretsFromEnv() Secrets {
	var brokers []string
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return Secrets{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		ResendAPIKey:         os.Getenv("RESEND_API_KEY"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		KafkaBrokers:         brokers,
	}
}

// Validate validates the configuration struct, the timezone, split ranges
// and rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid defaultTimezone %q: %w", cfg.DefaultTimezone, err)
	}

	if err := validateSplit(cfg.DefaultSplit); err != nil {
		return fmt.Errorf("invalid defaultSplit: %w", err)
	}

	for i, override := range cfg.ShiftOverrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in shiftOverrides[%d]: %w", i, err)
		}
		if err := validateSplit(override.Split); err != nil {
			return fmt.Errorf("invalid split in shiftOverrides[%d]: %w", i, err)
		}
	}

	return nil
}

func validateSplit(s Split) error {
	hundred := decimal.NewFromInt(100)
	for name, v := range map[string]string{"percentMaster": s.PercentMaster, "percentSalon": s.PercentSalon} {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d.IsNegative() || d.GreaterThan(hundred) {
			return fmt.Errorf("%s must be between 0 and 100, got %s", name, v)
		}
	}
	if s.HourlyRate != nil {
		rate, err := decimal.NewFromString(*s.HourlyRate)
		if err != nil {
			return fmt.Errorf("hourlyRate: %w", err)
		}
		if rate.IsNegative() {
			return fmt.Errorf("hourlyRate must not be negative, got %s", *s.HourlyRate)
		}
	}
	return nil
}

// SplitFor returns the split for a shift on date: the first override whose
// rrule matches the date, otherwise the default split
func (c *Config) SplitFor(date time.Time) db.ShiftSplit {
	dateStr := date.Format("2006-01-02")

	for _, override := range c.ShiftOverrides {
		rule, err := rrule.StrToRRule(override.RRule)
		if err != nil {
			continue
		}

		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		rule.DTStart(day.AddDate(0, 0, -7))
		for _, occurrence := range rule.Between(day, day.AddDate(0, 0, 1), true) {
			if occurrence.Format("2006-01-02") == dateStr {
				return override.Split.toShiftSplit()
			}
		}
	}

	return c.DefaultSplit.toShiftSplit()
}

// TTLs merges configured cache TTLs over the defaults
func (c *Config) TTLs() shiftdata.TTLs {
	ttls := shiftdata.TTLs{}
	for category, ttl := range shiftdata.DefaultTTLs {
		ttls[category] = ttl
	}

	for category, ttl := range map[shiftdata.Category]time.Duration{
		shiftdata.CategoryStatic:    c.Cache.Static,
		shiftdata.CategoryBookings:  c.Cache.Bookings,
		shiftdata.CategoryShift:     c.Cache.Shift,
		shiftdata.CategoryAggregate: c.Cache.Aggregate,
	} {
		if ttl > 0 {
			ttls[category] = ttl
		}
	}
	return ttls
}

func (s Split) toShiftSplit() db.ShiftSplit {
	split := db.ShiftSplit{
		PercentMaster: decimal.RequireFromString(s.PercentMaster),
		PercentSalon:  decimal.RequireFromString(s.PercentSalon),
	}
	if s.HourlyRate != nil {
		rate := decimal.RequireFromString(*s.HourlyRate)
		split.HourlyRate = &rate
	}
	return split
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
