package utils

import (
	"regexp"
	"unicode/utf8"
)

var (
	// Popup IDs are the admin app's generated identifiers.
	popupIDPattern = regexp.MustCompile(`^[a-z0-9]{20,30}$`)

	// Storefront domains, e.g. "example.myshopify.com".
	shopPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*(\.[a-z0-9][a-z0-9-]*)+$`)

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func IsValidPopupID(id string) bool {
	return popupIDPattern.MatchString(id)
}

func IsValidShopDomain(shop string) bool {
	return len(shop) <= 255 && shopPattern.MatchString(shop)
}

func IsValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// Truncate caps s at max bytes without splitting a multi-byte rune;
// Postgres rejects strings that are not valid UTF-8. Header-derived
// strings are capped before they reach storage.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func IsValidInterval(interval string) bool {
	switch interval {
	case "Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year":
		return true
	default:
		return false
	}
}
