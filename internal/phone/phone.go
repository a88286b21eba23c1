// Package phone normalizes user-supplied phone numbers to E.164 for the
// Retell API, which rejects anything else on outbound call creation.
package phone

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is assumed for bare 10-digit numbers when no override
// is configured.
const DefaultCountryCode = "+1"

var (
	separators = regexp.MustCompile(`[\s\-()]`)

	// Permissive international pattern for validating raw user input.
	loosePhonePattern = regexp.MustCompile(`^[+]?[(]?[0-9]{1,4}[)]?[-\s.]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,9}$`)
)

// Normalize converts a raw phone number to E.164 using the default country
// code for bare 10-digit numbers.
func Normalize(num string) string {
	return NormalizeWithCountryCode(num, DefaultCountryCode)
}

// NormalizeWithCountryCode strips separators and ensures a leading "+". A
// number without "+" that is exactly 10 digits is assumed domestic and gets
// the country code prefixed; anything else just gets "+". Idempotent: an
// already-normalized number passes through unchanged.
func NormalizeWithCountryCode(num, countryCode string) string {
	if num == "" {
		return ""
	}
	cleaned := separators.ReplaceAllString(num, "")
	if !strings.HasPrefix(cleaned, "+") {
		if len(cleaned) == 10 {
			cleaned = countryCode + cleaned
		} else {
			cleaned = "+" + cleaned
		}
	}
	return cleaned
}

// IsValid reports whether the raw input looks like a phone number. This is a
// loose format check on user input, not a carrier-level validation.
func IsValid(num string) bool {
	stripped := strings.ReplaceAll(num, " ", "")
	return loosePhonePattern.MatchString(stripped)
}
