package transform

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		order   DateOrder
		want    time.Time
		wantErr bool
	}{
		{"day first", "05/03/2024", DayMonthYear, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"month first", "05/03/2024", MonthDayYear, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), false},
		{"single digits", "1/2/2024", DayMonthYear, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"surrounding space", " 31/12/2023 ", DayMonthYear, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"iso format", "2024-03-05", DayMonthYear, time.Time{}, true},
		{"month out of range", "05/13/2024", DayMonthYear, time.Time{}, true},
		{"february overflow", "30/02/2024", DayMonthYear, time.Time{}, true},
		{"two digit year", "05/03/24", DayMonthYear, time.Time{}, true},
		{"text", "Tarjeta ****1234", DayMonthYear, time.Time{}, true},
		{"empty", "", DayMonthYear, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, tt.order)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDate(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"120.50", "120.5", false},
		{"1,234.56", "1234.56", false},
		{"-588.74", "-588.74", false},
		{" 12 ", "12", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseOptionalAmount(t *testing.T) {
	got, err := ParseOptionalAmount("  ")
	if err != nil || !got.IsZero() {
		t.Errorf("ParseOptionalAmount(blank) = %s, %v; want 0, nil", got, err)
	}
	if _, err := ParseOptionalAmount("x"); err == nil {
		t.Error("ParseOptionalAmount(\"x\") expected error")
	}
}
