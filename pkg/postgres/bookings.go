package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
	"github.com/jakechorley/salon-bookings/pkg/core/participants"
	"github.com/jakechorley/salon-bookings/pkg/db"
)

// GetBookingRow fetches a booking with its service, staff, business and branch
// embedded as JSON objects
func (d *DB) GetBookingRow(ctx context.Context, bookingID string) (*model.BookingRow, error) {
	var raw []byte
	err := d.pool.QueryRow(ctx, `
		SELECT row_to_json(b)::jsonb || jsonb_build_object(
			'service', (SELECT row_to_json(s) FROM services s WHERE s.id = b.service_id),
			'staff', (SELECT row_to_json(st) FROM staff st WHERE st.id = b.staff_id),
			'biz', (SELECT row_to_json(z) FROM businesses z WHERE z.id = b.biz_id),
			'branch', (SELECT row_to_json(br) FROM branches br WHERE br.id = b.branch_id)
		)
		FROM bookings b
		WHERE b.id = $1
	`, bookingID).Scan(&raw)
	if isNoRows(err) {
		return nil, db.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}

	var row model.BookingRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("failed to decode booking row: %w", err)
	}
	return &row, nil
}

// GetAuthUser returns the identity projection of a user, or nil if not found
func (d *DB) GetAuthUser(ctx context.Context, userID string) (*participants.AuthUser, error) {
	var u participants.AuthUser
	err := d.pool.QueryRow(ctx, `
		SELECT id, email, name, phone
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Email, &u.Name, &u.Phone)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// GetProfile returns a user's notification profile, or nil if not found
func (d *DB) GetProfile(ctx context.Context, userID string) (*participants.Profile, error) {
	var p participants.Profile
	err := d.pool.QueryRow(ctx, `
		SELECT user_id, full_name, phone, telegram_id,
			notify_email, notify_whatsapp, notify_telegram,
			whatsapp_verified, telegram_verified
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(
		&p.UserID, &p.FullName, &p.Phone, &p.TelegramID,
		&p.NotifyEmail, &p.NotifyWhatsApp, &p.NotifyTelegram,
		&p.WhatsAppVerified, &p.TelegramVerified,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &p, nil
}
