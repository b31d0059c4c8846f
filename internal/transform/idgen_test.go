package transform

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "simple text with space",
			input:    "American Express",
			expected: "american-express",
		},
		{
			name:     "special characters",
			input:    "Wells Fargo & Co.",
			expected: "wells-fargo-co",
		},
		{
			name:     "multiple spaces",
			input:    "Capital  One   Bank",
			expected: "capital-one-bank",
		},
		{
			name:     "spanish diacritics",
			input:    "Depósito SINPE Móvil Ñandú",
			expected: "deposito-sinpe-movil-nandu",
		},
		{
			name:     "decimal point collapses",
			input:    "REF 120.5",
			expected: "ref-120-5",
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only punctuation",
			input:       "*** ---",
			expectError: true,
		},
		{
			name:     "leading and trailing special chars",
			input:    "!Chase Bank!",
			expected: "chase-bank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slugify(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("Slugify(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Slugify(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	amount := decimal.RequireFromString("120.50")

	got := Fingerprint("000123", "2024-03-05", "Transferencia SINPE", amount)
	want := "000123-2024-03-05-transferencia-sinpe-120-5"
	if got != want {
		t.Errorf("Fingerprint() = %q, want %q", got, want)
	}
}

func TestFingerprint_Stability(t *testing.T) {
	// Equal tuples must always produce equal ids, independent of amount padding.
	a := Fingerprint("REF", "2024-01-02", "Café", decimal.RequireFromString("10.00"))
	b := Fingerprint("REF", "2024-01-02", "Café", decimal.RequireFromString("10"))
	c := Fingerprint("REF", "2024-01-02", "Café", decimal.NewFromInt(10))
	if a != b || b != c {
		t.Errorf("Fingerprint not stable: %q %q %q", a, b, c)
	}

	// Each component contributes
	seen := map[string]bool{}
	for _, fp := range []string{
		Fingerprint("REF", "2024-01-02", "Cafe", decimal.NewFromInt(10)),
		Fingerprint("REF2", "2024-01-02", "Cafe", decimal.NewFromInt(10)),
		Fingerprint("REF", "2024-01-03", "Cafe", decimal.NewFromInt(10)),
		Fingerprint("REF", "2024-01-02", "Tea", decimal.NewFromInt(10)),
		Fingerprint("REF", "2024-01-02", "Cafe", decimal.NewFromInt(11)),
	} {
		if seen[fp] {
			t.Errorf("duplicate fingerprint %q", fp)
		}
		seen[fp] = true
	}
}

func TestFingerprint_EmptyReference(t *testing.T) {
	got := Fingerprint("", "2024-01-02", "Fee", decimal.NewFromInt(3))
	if got != "2024-01-02-fee-3" {
		t.Errorf("Fingerprint() = %q", got)
	}
}

func TestExtractLast4(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"************1234", "1234"},
		{"4111-1111-1111-9876", "9876"},
		{"VISA 5678", "5678"},
		{"12", ""},
		{"", ""},
		{"abcd", ""},
	}

	for _, tt := range tests {
		if got := ExtractLast4(tt.input); got != tt.expected {
			t.Errorf("ExtractLast4(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
