// Package phone normalizes Cameroonian mobile numbers to E.164.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

// CountryCode is the Cameroon dialing prefix.
const CountryCode = "237"

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// Normalize converts a user-entered Cameroonian number to +237XXXXXXXXX form.
// Spaces and a leading "+" are stripped; the country code is prepended when
// missing. Numbers that do not look like local mobile numbers are rejected.
func Normalize(raw string) (string, error) {
	cleaned := strings.ReplaceAll(raw, " ", "")
	cleaned = strings.TrimPrefix(cleaned, "+")

	if cleaned == "" {
		return "", fmt.Errorf("empty phone number")
	}
	if !digitsOnly.MatchString(cleaned) {
		return "", fmt.Errorf("phone number contains non-digit characters")
	}

	var national string
	if strings.HasPrefix(cleaned, CountryCode) {
		national = cleaned[len(CountryCode):]
	} else {
		national = cleaned
	}

	// Cameroonian mobile numbers are 9 digits starting with 6.
	if len(national) != 9 || national[0] != '6' {
		return "", fmt.Errorf("invalid cameroonian mobile number: %s", raw)
	}

	return "+" + CountryCode + national, nil
}

// IsMTN reports whether the normalized number belongs to MTN Cameroon
// (prefixes 67, 650-654, 680-684).
func IsMTN(e164 string) bool {
	n := strings.TrimPrefix(e164, "+"+CountryCode)
	if len(n) != 9 {
		return false
	}
	switch {
	case n[0] == '6' && n[1] == '7':
		return true
	case strings.HasPrefix(n, "65") && n[2] >= '0' && n[2] <= '4':
		return true
	case strings.HasPrefix(n, "68") && n[2] >= '0' && n[2] <= '4':
		return true
	}
	return false
}

// IsOrange reports whether the normalized number belongs to Orange Cameroon
// (prefixes 69, 655-659, 685-689).
func IsOrange(e164 string) bool {
	n := strings.TrimPrefix(e164, "+"+CountryCode)
	if len(n) != 9 {
		return false
	}
	switch {
	case n[0] == '6' && n[1] == '9':
		return true
	case strings.HasPrefix(n, "65") && n[2] >= '5' && n[2] <= '9':
		return true
	case strings.HasPrefix(n, "68") && n[2] >= '5' && n[2] <= '9':
		return true
	}
	return false
}
