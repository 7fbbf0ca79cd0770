package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinYear = 1
	MaxYear = 9999
)

// Month identifies one calendar month. A nil *Month means "no month filter".
type Month struct {
	Year  int
	Month int
}

// NewMonth validates year and month and returns the corresponding Month.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	if year < MinYear || year > MaxYear {
		return Month{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return Month{Year: year, Month: month}, nil
}

// ParseMonth parses the YYYY-MM form used by query strings.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	y, m, ok := strings.Cut(s, "-")
	if !ok || len(y) != 4 || len(m) != 2 {
		return Month{}, fmt.Errorf("%w: %q, expected YYYY-MM", ErrInvalidMonth, s)
	}
	if !allDigits(y) {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidYear, y)
	}
	if !allDigits(m) {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, m)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidYear, y)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, m)
	}
	return NewMonth(year, month)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// Bounds returns the first and last calendar day of the month.
func (m Month) Bounds() (Date, Date) {
	first := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Date{Time: first}, Date{Time: last}
}

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && int(d.Month()) == m.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}
