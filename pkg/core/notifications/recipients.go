package notifications

import (
	"strings"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// BuildEmailRecipients assembles the email list in the order client, staff,
// owner, admins. Only participants with an address who accept email are
// included. Addresses are compared trimmed and case-insensitively and the first
// occurrence wins. Admin entries matching the owner's address are always
// dropped, even when the owner has opted out. Only the client gets the calendar
// attachment.
func BuildEmailRecipients(client, staff, owner model.ParticipantData, admins []string) []model.EmailRecipient {
	seen := make(map[string]bool)
	var recipients []model.EmailRecipient

	add := func(p model.ParticipantData, role model.ParticipantRole) {
		if !p.NotifyEmail || p.Email == nil {
			return
		}
		email := strings.TrimSpace(*p.Email)
		key := strings.ToLower(email)
		if email == "" || seen[key] {
			return
		}
		seen[key] = true

		r := model.EmailRecipient{
			Email:   email,
			Role:    role,
			WithICS: role == model.RoleClient,
		}
		if p.Name != nil {
			r.Name = strings.TrimSpace(*p.Name)
		}
		recipients = append(recipients, r)
	}

	add(client, model.RoleClient)
	add(staff, model.RoleStaff)
	add(owner, model.RoleOwner)

	ownerKey := ""
	if owner.Email != nil {
		ownerKey = strings.ToLower(strings.TrimSpace(*owner.Email))
	}
	for _, admin := range admins {
		email := strings.TrimSpace(admin)
		if email == "" || strings.ToLower(email) == ownerKey {
			continue
		}
		add(model.ParticipantData{Email: &email, NotifyEmail: true}, model.RoleAdmin)
	}

	return recipients
}
