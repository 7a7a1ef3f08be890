package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BookingRow is a booking fetched together with its joined records.
// Joins may arrive as a single object, an array of objects or null.
type BookingRow struct {
	Booking
	Service  json.RawMessage `json:"service"`
	Staff    json.RawMessage `json:"staff"`
	Business json.RawMessage `json:"biz"`
	Branch   json.RawMessage `json:"branch"`
}

// NormalizedBooking is a booking whose joins are single-valued
type NormalizedBooking struct {
	Booking  Booking
	Service  *Service
	Staff    *Staff
	Business *Business
	Branch   *Branch
}

// One decodes a join that may be an object, an array or null.
// Arrays yield their first element; null and empty arrays yield nil.
func One[T any](raw json.RawMessage) (*T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var many []T
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, err
		}
		if len(many) == 0 {
			return nil, nil
		}
		return &many[0], nil
	}

	var one T
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return &one, nil
}

// Normalize resolves every join of the row to at most one record
func (r BookingRow) Normalize() (*NormalizedBooking, error) {
	service, err := One[Service](r.Service)
	if err != nil {
		return nil, fmt.Errorf("failed to decode service join: %w", err)
	}
	staff, err := One[Staff](r.Staff)
	if err != nil {
		return nil, fmt.Errorf("failed to decode staff join: %w", err)
	}
	biz, err := One[Business](r.Business)
	if err != nil {
		return nil, fmt.Errorf("failed to decode business join: %w", err)
	}
	branch, err := One[Branch](r.Branch)
	if err != nil {
		return nil, fmt.Errorf("failed to decode branch join: %w", err)
	}

	return &NormalizedBooking{
		Booking:  r.Booking,
		Service:  service,
		Staff:    staff,
		Business: biz,
		Branch:   branch,
	}, nil
}
