package sanitizer

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegions are tried in order for numbers written without a country code
var DefaultRegions = []string{"US", "GB"}

// NormalizePhone formats phone as E.164. Numbers with a leading + are parsed
// as international; others are tried against each region in turn.
func NormalizePhone(phone string, regions []string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("phone number is empty")
	}
	if len(regions) == 0 {
		regions = DefaultRegions
	}

	for _, region := range regions {
		parsed, err := phonenumbers.Parse(phone, strings.ToUpper(region))
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			continue
		}
		return phonenumbers.Format(parsed, phonenumbers.E164), nil
	}
	return "", fmt.Errorf("phone number %q is not valid in any of regions %v", phone, regions)
}
