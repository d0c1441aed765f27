package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// IsMonth reports whether s has the YYYY-MM shape. It does not check that
// the month number is between 01 and 12.
func IsMonth(s string) bool {
	return monthPattern.MatchString(s)
}

// ParseMonth parses a YYYY-MM string into the first day of that month (UTC).
func ParseMonth(s string) (time.Time, error) {
	if !IsMonth(s) {
		return time.Time{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t, nil
}

// MonthOf formats the month containing t.
func MonthOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// AddMonths shifts a YYYY-MM month by n months. It panics on malformed input;
// callers validate months before doing arithmetic on them.
func AddMonths(month string, n int) string {
	t, err := ParseMonth(month)
	if err != nil {
		panic(err)
	}
	return MonthOf(t.AddDate(0, n, 0))
}

// MonthRange lists every month from start to end, both inclusive.
func MonthRange(start, end string) []string {
	var out []string
	for m := start; m <= end; m = AddMonths(m, 1) {
		out = append(out, m)
	}
	return out
}

// MonthInt converts "2024-03" to 202403, the zero_budgets month encoding.
func MonthInt(month string) int {
	n, _ := strconv.Atoi(month[:4] + month[5:7])
	return n
}

// MonthFromInt converts 202403 back to "2024-03".
func MonthFromInt(n int) string {
	return fmt.Sprintf("%04d-%02d", n/100, n%100)
}

// ParseDate converts "2024-03-09" to 20240309.
func ParseDate(s string) (int, error) {
	if !datePattern.MatchString(s) {
		return 0, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", s, err)
	}
	n, _ := strconv.Atoi(s[:4] + s[5:7] + s[8:10])
	return n, nil
}

// FormatDate converts 20240309 to "2024-03-09". Zero formats as "".
func FormatDate(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", n/10000, n/100%100, n%100)
}

// DateMonth returns the YYYY-MM month of a YYYYMMDD date.
func DateMonth(n int) string {
	return MonthFromInt(n / 100)
}
