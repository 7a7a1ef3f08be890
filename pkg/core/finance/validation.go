package finance

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// MaxAmount is the largest accepted service or consumables amount
var MaxAmount = decimal.NewFromInt(100_000_000)

var validate = validator.New()

// FieldErrors maps a field path (e.g. "items[2].serviceAmount") to its message
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	return "invalid shift items: " + strings.Join(fe.Lines(), "; ")
}

// Lines returns "field: message" entries sorted by field
func (fe FieldErrors) Lines() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return lines
}

var fieldNames = map[string]string{
	"ID":                "id",
	"ClientName":        "clientName",
	"ServiceName":       "serviceName",
	"ServiceAmount":     "serviceAmount",
	"ConsumablesAmount": "consumablesAmount",
	"BookingID":         "bookingId",
}

// ValidateItem checks one line item, returning field-level messages keyed by field name
func ValidateItem(item model.ShiftItem) FieldErrors {
	errs := FieldErrors{}

	if err := validate.Struct(item); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs[fieldName(fe.StructField())] = tagMessage(fe)
			}
		} else {
			errs["item"] = err.Error()
		}
	}

	hasName := strings.TrimSpace(item.ClientName) != "" || strings.TrimSpace(item.ServiceName) != ""
	hasBooking := item.BookingID != nil && strings.TrimSpace(*item.BookingID) != ""
	if !hasName && !hasBooking {
		errs["clientName"] = "client or service name is required when no booking is linked"
	}

	checkAmount(errs, "serviceAmount", item.ServiceAmount)
	checkAmount(errs, "consumablesAmount", item.ConsumablesAmount)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateItems validates every item. Returns nil when all items are valid.
func ValidateItems(items []model.ShiftItem) error {
	all := FieldErrors{}
	for i, item := range items {
		for field, msg := range ValidateItem(item) {
			all[fmt.Sprintf("items[%d].%s", i, field)] = msg
		}
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

func checkAmount(errs FieldErrors, field string, amount decimal.Decimal) {
	if amount.IsNegative() {
		errs[field] = "must not be negative"
		return
	}
	if amount.GreaterThan(MaxAmount) {
		errs[field] = fmt.Sprintf("must not exceed %s", MaxAmount.String())
	}
}

func fieldName(structField string) string {
	if name, ok := fieldNames[structField]; ok {
		return name
	}
	return structField
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
