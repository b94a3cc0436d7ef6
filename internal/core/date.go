package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar day in UTC. It serializes as YYYY-MM-DD.
type Date struct {
	time.Time
}

const (
	isoLayout   = "2006-01-02"
	DayLabel    = "02 Jan 2006"
	MonthLabel  = "Jan 2006"
	LongMonth   = "January 2006"
	MonthLayout = "2006-01"
)

var ErrStatementMonth = fmt.Errorf("%w: statement month must be in YYYY-MM format", ErrValidation)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar day in the local time zone.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q is invalid", ErrValidation, s)
	}
	return Date{Time: t}, nil
}

// ParseStatementMonth parses YYYY-MM into the first day of that month.
func ParseStatementMonth(s string) (Date, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Date{}, fmt.Errorf("%w: statement month is required", ErrValidation)
	}
	yearStr, monthStr, ok := strings.Cut(raw, "-")
	if !ok {
		return Date{}, ErrStatementMonth
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return Date{}, ErrStatementMonth
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return Date{}, ErrStatementMonth
	}
	return NewDate(year, month, 1), nil
}

// MonthStart returns the first day of d's month.
func MonthStart(d Date) Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// NextMonth returns the first day of the month after d's month.
func NextMonth(d Date) Date {
	return NewDate(d.Year(), int(d.Month())+1, 1)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.Format(isoLayout))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*d = Date{}
		return nil
	}
	s, err := strconv.Unquote(raw)
	if err != nil {
		return fmt.Errorf("%w: date must be a string", ErrValidation)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
