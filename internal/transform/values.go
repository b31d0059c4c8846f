package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateOrder identifies the field order of a slash separated statement date.
type DateOrder int

const (
	// DayMonthYear is used by the Costa Rican bank exports ("05/03/2024" is March 5th)
	DayMonthYear DateOrder = iota
	// MonthDayYear is used by Payoneer ("03/05/2024" is March 5th)
	MonthDayYear
)

// ParseDate parses a "d/m/yyyy" or "m/d/yyyy" date. Single digit fields are accepted.
// The result is a UTC calendar date.
func ParseDate(s string, order DateOrder) (time.Time, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: expected 3 slash separated fields", s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if order == MonthDayYear {
		day, month = nums[1], nums[0]
	}
	if year < 1000 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, fmt.Errorf("invalid date %q: out of range", s)
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31/02 becomes 03/03); reject it
	if date.Day() != day || int(date.Month()) != month {
		return time.Time{}, fmt.Errorf("invalid date %q: day out of range", s)
	}
	return date, nil
}

// ParseAmount parses a statement amount such as "1,234.56", "-588.74" or " 12 ".
// Thousands separators (",") are dropped. An empty string is an error; use
// ParseOptionalAmount for columns where blank means zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("amount cannot be empty")
	}
	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

// ParseOptionalAmount is ParseAmount with blank treated as zero.
func ParseOptionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseAmount(s)
}
