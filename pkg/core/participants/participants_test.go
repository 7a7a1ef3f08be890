package participants

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// mockAuthLookup implements AuthLookup for testing
type mockAuthLookup struct {
	users map[string]*AuthUser
	err   error
	calls []string
}

func (m *mockAuthLookup) GetAuthUser(ctx context.Context, userID string) (*AuthUser, error) {
	m.calls = append(m.calls, userID)
	if m.err != nil {
		return nil, m.err
	}
	return m.users[userID], nil
}

// mockProfileLookup implements ProfileLookup for testing
type mockProfileLookup struct {
	profiles map[string]*Profile
	err      error
}

func (m *mockProfileLookup) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles[userID], nil
}

func str(s string) *string { return &s }
func boolp(b bool) *bool   { return &b }

func TestGetClientData_GuestFallsBackToBookingFields(t *testing.T) {
	auth := &mockAuthLookup{}
	svc := NewService(auth, &mockProfileLookup{}, zap.NewNop())

	data := svc.GetClientData(context.Background(), model.Booking{
		ID:          "b1",
		ClientName:  str("Guest Name"),
		ClientPhone: str(" +15551234567 "),
		ClientEmail: str("guest@example.com"),
	})

	require.NotNil(t, data.Name)
	assert.Equal(t, "Guest Name", *data.Name)
	require.NotNil(t, data.Phone)
	assert.Equal(t, "+15551234567", *data.Phone)
	require.NotNil(t, data.Email)
	assert.Equal(t, "guest@example.com", *data.Email)
	assert.True(t, data.NotifyEmail)
	assert.False(t, data.NotifyWhatsApp)
	assert.False(t, data.NotifyTelegram)

	// Guests never hit the auth lookup
	assert.Empty(t, auth.calls)
}

func TestGetClientData_RegisteredUserOverridesGuestFields(t *testing.T) {
	auth := &mockAuthLookup{users: map[string]*AuthUser{
		"user-1": {ID: "user-1", Email: str("real@example.com"), Name: str("Real Name")},
	}}
	profiles := &mockProfileLookup{profiles: map[string]*Profile{
		"user-1": {
			UserID:           "user-1",
			FullName:         str("Profile Name"),
			Phone:            str("+15559876543"),
			TelegramID:       str("123456"),
			NotifyEmail:      boolp(true),
			NotifyWhatsApp:   boolp(true),
			NotifyTelegram:   boolp(false),
			WhatsAppVerified: true,
		},
	}}
	svc := NewService(auth, profiles, zap.NewNop())

	data := svc.GetClientData(context.Background(), model.Booking{
		ID:          "b1",
		ClientID:    str("user-1"),
		ClientName:  str("Typed At Booking"),
		ClientPhone: str("+15550000000"),
		ClientEmail: str("typed@example.com"),
	})

	// Auth name wins over profile name, profile phone fills the empty auth phone
	assert.Equal(t, "Real Name", *data.Name)
	assert.Equal(t, "real@example.com", *data.Email)
	assert.Equal(t, "+15559876543", *data.Phone)
	assert.Equal(t, "123456", *data.TelegramID)
	assert.True(t, data.NotifyEmail)
	assert.True(t, data.NotifyWhatsApp)
	assert.False(t, data.NotifyTelegram)
	assert.True(t, data.WhatsAppVerified)
	assert.False(t, data.TelegramVerified)
}

func TestGetClientData_ProfileDoesNotOverwriteAuthPhone(t *testing.T) {
	auth := &mockAuthLookup{users: map[string]*AuthUser{
		"user-1": {ID: "user-1", Phone: str("+15551111111")},
	}}
	profiles := &mockProfileLookup{profiles: map[string]*Profile{
		"user-1": {UserID: "user-1", Phone: str("+15552222222")},
	}}
	svc := NewService(auth, profiles, zap.NewNop())

	data := svc.GetClientData(context.Background(), model.Booking{ClientID: str("user-1")})

	assert.Equal(t, "+15551111111", *data.Phone)
}

func TestGetClientData_LookupFailuresDegradeToGuestFields(t *testing.T) {
	auth := &mockAuthLookup{err: fmt.Errorf("auth service unavailable")}
	profiles := &mockProfileLookup{err: fmt.Errorf("profiles table locked")}
	svc := NewService(auth, profiles, zap.NewNop())

	data := svc.GetClientData(context.Background(), model.Booking{
		ClientID:   str("user-1"),
		ClientName: str("Guest Name"),
	})

	assert.Equal(t, "Guest Name", *data.Name)
	assert.Nil(t, data.Email)
	assert.Nil(t, data.Phone)
	assert.Nil(t, data.TelegramID)
	assert.True(t, data.NotifyEmail)
}

func TestGetClientData_BlankValuesBecomeNil(t *testing.T) {
	svc := NewService(&mockAuthLookup{}, &mockProfileLookup{}, zap.NewNop())

	data := svc.GetClientData(context.Background(), model.Booking{
		ClientName:  str("   "),
		ClientEmail: str(""),
	})

	assert.Nil(t, data.Name)
	assert.Nil(t, data.Email)
}

func TestGetOwnerData_NotifyListWinsOverAuthEmail(t *testing.T) {
	auth := &mockAuthLookup{users: map[string]*AuthUser{
		"owner-1": {ID: "owner-1", Email: str("owner.personal@example.com"), Name: str("Owner")},
	}}
	svc := NewService(auth, &mockProfileLookup{}, zap.NewNop())

	data := svc.GetOwnerData(context.Background(), &model.Business{
		ID:            "biz-1",
		OwnerID:       str("owner-1"),
		EmailNotifyTo: []string{"  ", " bookings@salon.test "},
	})

	require.NotNil(t, data.Email)
	assert.Equal(t, "bookings@salon.test", *data.Email)
	assert.Equal(t, "Owner", *data.Name)
	assert.True(t, data.NotifyEmail)
}

func TestGetOwnerData_NotifyListWinsEvenWhenOwnerOptedOut(t *testing.T) {
	auth := &mockAuthLookup{users: map[string]*AuthUser{
		"owner-1": {ID: "owner-1", Email: str("owner@example.com")},
	}}
	profiles := &mockProfileLookup{profiles: map[string]*Profile{
		"owner-1": {UserID: "owner-1", NotifyEmail: boolp(false)},
	}}
	svc := NewService(auth, profiles, zap.NewNop())

	data := svc.GetOwnerData(context.Background(), &model.Business{
		OwnerID:       str("owner-1"),
		EmailNotifyTo: []string{"desk@salon.test"},
	})

	assert.Equal(t, "desk@salon.test", *data.Email)
	assert.True(t, data.NotifyEmail)
}

func TestGetOwnerData_FallsBackToAuthEmail(t *testing.T) {
	auth := &mockAuthLookup{users: map[string]*AuthUser{
		"owner-1": {ID: "owner-1", Email: str("owner@example.com")},
	}}
	svc := NewService(auth, &mockProfileLookup{}, zap.NewNop())

	data := svc.GetOwnerData(context.Background(), &model.Business{OwnerID: str("owner-1")})

	assert.Equal(t, "owner@example.com", *data.Email)
}

func TestGetOwnerData_NilBusiness(t *testing.T) {
	svc := NewService(&mockAuthLookup{}, &mockProfileLookup{}, zap.NewNop())

	data := svc.GetOwnerData(context.Background(), nil)

	assert.Nil(t, data.Email)
	assert.Nil(t, data.Phone)
}

func TestGetStaffData_LinkedUserThenStaffRecord(t *testing.T) {
	auth := &mockAuthLookup{users: map[string]*AuthUser{
		"user-7": {ID: "user-7", Email: str("anna@example.com")},
	}}
	profiles := &mockProfileLookup{profiles: map[string]*Profile{
		"user-7": {UserID: "user-7", TelegramID: str("777"), NotifyTelegram: boolp(true)},
	}}
	svc := NewService(auth, profiles, zap.NewNop())

	data := svc.GetStaffData(context.Background(), &model.Staff{
		ID:       "staff-1",
		UserID:   str("user-7"),
		FullName: "Anna Master",
		Email:    str("anna.staff@example.com"),
		Phone:    str("+15553333333"),
	})

	assert.Equal(t, "anna@example.com", *data.Email)
	assert.Equal(t, "+15553333333", *data.Phone)
	assert.Equal(t, "Anna Master", *data.Name)
	assert.Equal(t, "777", *data.TelegramID)
	assert.True(t, data.NotifyTelegram)
}

func TestGetStaffData_NoLinkedUser(t *testing.T) {
	auth := &mockAuthLookup{}
	svc := NewService(auth, &mockProfileLookup{}, zap.NewNop())

	data := svc.GetStaffData(context.Background(), &model.Staff{
		ID:       "staff-1",
		FullName: "Olga",
		Email:    str("olga@example.com"),
	})

	assert.Equal(t, "olga@example.com", *data.Email)
	assert.Equal(t, "Olga", *data.Name)
	assert.Empty(t, auth.calls)
}
