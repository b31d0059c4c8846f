package transform

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts free text to a lower-case, hyphen separated ASCII slug.
// Examples: "Depósito SINPE Móvil" → "deposito-sinpe-movil", "Wells Fargo & Co." → "wells-fargo-co"
func Slugify(text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("text cannot be empty")
	}

	// Normalize unicode (e.g., accented characters)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, text)
	if err != nil {
		return "", fmt.Errorf("failed to normalize %q: %w", text, err)
	}

	slug := strings.ToLower(normalized)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return "", fmt.Errorf("%q contains no alphanumeric characters", text)
	}

	return slug, nil
}

// Fingerprint builds the deterministic external id of a transaction.
// Format: slug("{reference} {date} {notes} {amount}")
//
// The amount is rendered in canonical decimal form ("120.5", not "120.50") so the
// same row always yields the same id regardless of how the statement pads it.
// Empty parts are skipped. Returns "" when nothing alphanumeric remains.
func Fingerprint(reference, isoDate, notes string, amount decimal.Decimal) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{reference, isoDate, notes, amount.String()} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	slug, err := Slugify(strings.Join(parts, " "))
	if err != nil {
		return ""
	}
	return slug
}

// ExtractLast4 returns the last 4 digits found in s, ignoring masks and separators.
// Returns "" when s holds fewer than 4 digits.
// Examples: "************1234" → "1234", "4111-1111-1111-9876" → "9876", "12" → ""
func ExtractLast4(s string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}
