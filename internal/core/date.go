package core

import (
	"errors"
	"time"
)

const DateLayout = "2006-01-02"

type Date struct {
	time.Time
}

// Period is an inclusive range of calendar days.
type Period struct {
	Start Date
	End   Date
}

var (
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidYear  = errors.New("invalid year")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return Date{}, Invalid("date", "expected YYYY-MM-DD, got %q", s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	year, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < 1 || year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero (used for optional filter bounds)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// MonthPeriod returns [first day, last day] of the given month.
func MonthPeriod(year, month int) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, Invalid("year", "year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return Period{}, Invalid("month", "month %d outside 1-12", month)
	}
	start := NewDate(year, month, 1)
	end := Date{Time: start.AddDate(0, 1, -1)}
	return Period{Start: start, End: end}, nil
}

// YearPeriod returns [Jan 1, Dec 31] of the given year.
func YearPeriod(year int) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, Invalid("year", "year %d out of range", year)
	}
	return Period{Start: NewDate(year, 1, 1), End: NewDate(year, 12, 31)}, nil
}

// Contains reports whether d falls inside the period, bounds included.
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start.Time) && !d.After(p.End.Time)
}

func (p Period) String() string {
	return p.Start.String() + ".." + p.End.String()
}
