// Package clean provides the field normalizers used while extracting legacy
// records.
//
// These functions handle the messy reality of a hand-maintained school
// database:
//   - Placeholder strings ("--Select--", "N/A", "null") standing in for NULL
//   - Phone numbers with country codes, spaces and dashes
//   - Dates in several layouts plus MySQL zero-dates
//   - Amounts with thousands separators
//
// Every normalizer is total: it never returns an error. Where a value cannot
// be recovered a documented default is substituted and, for the normalizers
// that return a flag, the substitution is reported so callers can record it.
package clean

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PhonePlaceholder is substituted for phone numbers with fewer than 10 digits.
const PhonePlaceholder = "0000000000"

// DefaultDateFallback is the date used when a caller has no better fallback.
const DefaultDateFallback = "01-01-2000"

// DateLayout is the canonical output layout (DD-MM-YYYY).
const DateLayout = "02-01-2006"

// Gender values.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// placeholders holds the lowercased sentinel strings treated as "no value".
var placeholders = map[string]bool{
	"":           true,
	"-":          true,
	"--select--": true,
	"n/a":        true,
	"na":         true,
	"none":       true,
	"null":       true,
}

var (
	nonDigitRegex = regexp.MustCompile(`\D`)

	// numericRegex validates that a string is a valid numeric format after cleanup.
	numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// dateLayouts are tried in order: ISO, day-month-year with '-', day-month-year
// with '/', year-first with '/'. Single-digit days and months are accepted.
var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2/1/2006",
	"2006/1/2",
}

// IsPlaceholder reports whether s is empty or one of the placeholder
// sentinels, compared case-insensitively after trimming.
func IsPlaceholder(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

// Text trims s, collapses internal whitespace runs to a single space and maps
// placeholders to the empty string.
func Text(s string) string {
	if IsPlaceholder(s) {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

// Digits strips every non-digit character from s.
func Digits(s string) string {
	return nonDigitRegex.ReplaceAllString(s, "")
}

// Phone normalizes a phone number to 10 digits.
// Longer numbers keep their trailing 10 digits (drops country codes); shorter
// ones are replaced by PhonePlaceholder. The flag reports whether the result
// differs from the trimmed input.
func Phone(raw string) (string, bool) {
	if IsPlaceholder(raw) {
		return PhonePlaceholder, true
	}

	digits := Digits(raw)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	if len(digits) < 10 {
		return PhonePlaceholder, true
	}

	return digits, digits != strings.TrimSpace(raw)
}

// Date normalizes a date to DD-MM-YYYY.
// Placeholders, MySQL zero-dates ("0000-00-00") and unparseable values yield
// fallback with the flag set. A successfully parsed date is never flagged,
// even when its layout changed.
func Date(raw, fallback string) (string, bool) {
	s := strings.TrimSpace(raw)
	if IsPlaceholder(s) || strings.HasPrefix(s, "0000") {
		return fallback, true
	}

	s = stripTimeOfDay(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), false
		}
	}

	return fallback, true
}

// stripTimeOfDay drops a trailing clock component from DATETIME values,
// e.g. "2024-04-01 10:15:00" or "2024-04-01T10:15:00".
func stripTimeOfDay(s string) string {
	idx := strings.IndexAny(s, " T")
	if idx > 0 && strings.Contains(s[idx:], ":") {
		return s[:idx]
	}
	return s
}

// Gender maps {male, m} to Male and {female, f} to Female, case-insensitively.
// Everything else, placeholders included, is Other.
func Gender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	default:
		return GenderOther
	}
}

// NationalID returns the 12-digit national identity number contained in raw,
// or "" when exactly 12 digits do not remain after stripping separators.
func NationalID(raw string) string {
	if IsPlaceholder(raw) {
		return ""
	}
	digits := Digits(raw)
	if len(digits) != 12 {
		return ""
	}
	return digits
}

// Amount parses a monetary amount, tolerating thousands separators and
// surrounding whitespace. Placeholders and anything unparseable yield zero.
func Amount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if IsPlaceholder(s) {
		return decimal.Zero
	}

	s = strings.ReplaceAll(s, ",", "")
	if !numericRegex.MatchString(s) {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
