package participants

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// AuthUser is the identity projection of a registered user
type AuthUser struct {
	ID    string
	Email *string
	Name  *string
	Phone *string
}

// Profile holds the user's notification preferences and messenger contacts
type Profile struct {
	UserID           string
	FullName         *string
	Phone            *string
	TelegramID       *string
	NotifyEmail      *bool
	NotifyWhatsApp   *bool
	NotifyTelegram   *bool
	WhatsAppVerified bool
	TelegramVerified bool
}

// AuthLookup fetches a user's identity. Returns (nil, nil) when not found.
type AuthLookup interface {
	GetAuthUser(ctx context.Context, userID string) (*AuthUser, error)
}

// ProfileLookup fetches a user's profile. Returns (nil, nil) when not found.
type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// Service resolves participant data for clients, staff and business owners.
// Every lookup is fail-soft: a failed lookup leaves its fields empty.
type Service struct {
	auth     AuthLookup
	profiles ProfileLookup
	logger   *zap.Logger
}

func NewService(auth AuthLookup, profiles ProfileLookup, logger *zap.Logger) *Service {
	return &Service{
		auth:     auth,
		profiles: profiles,
		logger:   logger,
	}
}

// GetClientData resolves the booking's client. Registered-user data wins over the
// guest fields on the booking; guest fields only fill the gaps.
func (s *Service) GetClientData(ctx context.Context, booking model.Booking) model.ParticipantData {
	data := defaultParticipant()

	if userID := deref(booking.ClientID); userID != "" {
		s.applyUser(ctx, &data, userID)
	}

	data.Phone = firstNonEmpty(data.Phone, booking.ClientPhone)
	data.Name = firstNonEmpty(data.Name, booking.ClientName)
	data.Email = firstNonEmpty(data.Email, booking.ClientEmail)

	return data
}

// GetOwnerData resolves the business owner. An explicit notification address on the
// business always wins over the owner's own account email.
func (s *Service) GetOwnerData(ctx context.Context, biz *model.Business) model.ParticipantData {
	data := defaultParticipant()
	if biz == nil {
		return data
	}

	if ownerID := deref(biz.OwnerID); ownerID != "" {
		s.applyUser(ctx, &data, ownerID)
	}

	if notifyTo := FirstNotifyEmail(biz.EmailNotifyTo); notifyTo != nil {
		data.Email = notifyTo
		data.NotifyEmail = true
	}

	return data
}

// GetStaffData resolves a staff member through their linked user account,
// falling back to the contact fields on the staff record.
func (s *Service) GetStaffData(ctx context.Context, staff *model.Staff) model.ParticipantData {
	data := defaultParticipant()
	if staff == nil {
		return data
	}

	if userID := deref(staff.UserID); userID != "" {
		s.applyUser(ctx, &data, userID)
	}

	data.Email = firstNonEmpty(data.Email, staff.Email)
	data.Phone = firstNonEmpty(data.Phone, staff.Phone)
	data.Name = firstNonEmpty(data.Name, &staff.FullName)

	return data
}

// applyUser seeds data from the auth projection, then overlays the profile
func (s *Service) applyUser(ctx context.Context, data *model.ParticipantData, userID string) {
	user, err := s.auth.GetAuthUser(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to look up auth user",
			zap.String("user_id", userID),
			zap.Error(err))
	} else if user != nil {
		data.Email = clean(user.Email)
		data.Name = clean(user.Name)
		data.Phone = clean(user.Phone)
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to look up profile",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}
	if profile == nil {
		s.logger.Debug("No profile found", zap.String("user_id", userID))
		return
	}

	// Profile only fills phone and name when the auth projection had none
	data.Phone = firstNonEmpty(data.Phone, profile.Phone)
	data.Name = firstNonEmpty(data.Name, profile.FullName)
	data.TelegramID = clean(profile.TelegramID)

	if profile.NotifyEmail != nil {
		data.NotifyEmail = *profile.NotifyEmail
	}
	if profile.NotifyWhatsApp != nil {
		data.NotifyWhatsApp = *profile.NotifyWhatsApp
	}
	if profile.NotifyTelegram != nil {
		data.NotifyTelegram = *profile.NotifyTelegram
	}
	data.WhatsAppVerified = profile.WhatsAppVerified
	data.TelegramVerified = profile.TelegramVerified
}

// FirstNotifyEmail returns the first non-blank entry of a notification address list
func FirstNotifyEmail(emails []string) *string {
	for _, e := range emails {
		if v := clean(&e); v != nil {
			return v
		}
	}
	return nil
}

func defaultParticipant() model.ParticipantData {
	return model.ParticipantData{NotifyEmail: true}
}

// clean trims a value and maps blanks to nil
func clean(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func firstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if c := clean(v); c != nil {
			return c
		}
	}
	return nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
