package core

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period identifies a calendar month.
type Period struct {
	Year  int
	Month int
}

func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return Period{}, &ValidationError{Field: "period", Reason: "must be YYYY-MM"}
	}
	return NewPeriod(t.Year(), int(t.Month()))
}

// PeriodOf returns the month containing d.
func PeriodOf(d Date) Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if p.Year < 1 || p.Year > 9999 {
		return &ValidationError{Field: "year", Reason: "must be between 1 and 9999"}
	}
	return nil
}

// First returns the first day of the month.
func (p Period) First() Date {
	return NewDate(p.Year, p.Month, 1)
}

// Last returns the last day of the month.
func (p Period) Last() Date {
	return Date{Time: p.First().AddDate(0, 1, -1)}
}

// Contains reports whether d falls inside the month.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// CurrentPeriod returns the month of now in UTC.
func CurrentPeriod(now time.Time) Period {
	now = now.UTC()
	return Period{Year: now.Year(), Month: int(now.Month())}
}
