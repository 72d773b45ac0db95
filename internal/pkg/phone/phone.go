// Package phone normalizes mobile numbers to E.164.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number has no country prefix and no region
// was configured.
const DefaultRegion = "US"

var ErrInvalidNumber = errors.New("invalid phone number")

// Normalize parses raw in region and returns it in E.164 form.
// An empty input normalizes to an empty string.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Valid reports whether raw is a valid number in region.
func Valid(raw, region string) bool {
	n, err := Normalize(raw, region)
	return err == nil && n != ""
}
