package finance

import (
	"sort"
	"strings"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// MergeShiftItems reconciles locally edited items with a fresh server list.
//
// Server items are authoritative for membership. Where a local item shares a
// server item's id, the local non-empty values win so an in-progress edit is not
// clobbered by a refetch. Unsaved local items survive unless an item that has
// newly appeared on the server carries the same content, in which case the save
// has round-tripped and the server copy replaces it.
func MergeShiftItems(local, server []model.ShiftItem) []model.ShiftItem {
	localByID := make(map[string]model.ShiftItem)
	var unsaved []model.ShiftItem
	for _, item := range local {
		if item.IsSaved() {
			localByID[*item.ID] = item
		} else {
			unsaved = append(unsaved, item)
		}
	}

	merged := make([]model.ShiftItem, 0, len(server)+len(unsaved))
	var appeared []int
	for _, srv := range server {
		if !srv.IsSaved() {
			continue
		}
		if loc, ok := localByID[*srv.ID]; ok {
			merged = append(merged, overlay(srv, loc))
			continue
		}
		appeared = append(appeared, len(merged))
		merged = append(merged, srv)
	}

	absorbed := make(map[int]bool, len(appeared))
	for _, item := range unsaved {
		matched := false
		for _, idx := range appeared {
			if absorbed[idx] || !contentEqual(item, merged[idx]) {
				continue
			}
			absorbed[idx] = true
			matched = true
			break
		}
		if !matched {
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged
}

// overlay applies local non-empty values on top of the server item
func overlay(srv, loc model.ShiftItem) model.ShiftItem {
	out := srv
	if strings.TrimSpace(loc.ClientName) != "" {
		out.ClientName = loc.ClientName
	}
	if strings.TrimSpace(loc.ServiceName) != "" {
		out.ServiceName = loc.ServiceName
	}
	if !loc.ServiceAmount.IsZero() {
		out.ServiceAmount = loc.ServiceAmount
	}
	if !loc.ConsumablesAmount.IsZero() {
		out.ConsumablesAmount = loc.ConsumablesAmount
	}
	if loc.BookingID != nil && strings.TrimSpace(*loc.BookingID) != "" {
		out.BookingID = loc.BookingID
	}
	return out
}

// contentEqual compares every value field, ignoring id and timestamps
func contentEqual(a, b model.ShiftItem) bool {
	return strings.TrimSpace(a.ClientName) == strings.TrimSpace(b.ClientName) &&
		strings.TrimSpace(a.ServiceName) == strings.TrimSpace(b.ServiceName) &&
		a.ServiceAmount.Equal(b.ServiceAmount) &&
		a.ConsumablesAmount.Equal(b.ConsumablesAmount) &&
		optString(a.BookingID) == optString(b.BookingID)
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
