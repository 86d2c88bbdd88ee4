package core

import (
	"errors"
	"time"
)

// Day is a timezone-free calendar day, stored as UTC midnight.
//
// Every date entering this system goes through NewDay, DayOf or ParseDay so
// that a timestamp taken from a caller's local clock can never land on the
// wrong calendar day once stored or compared.
type Day struct {
	time.Time
}

// DayLayout is the canonical wire and storage format for calendar days.
const DayLayout = "2006-01-02"

var ErrInvalidDay = errors.New("invalid day")

// NewDay creates a Day from year, month and day of month.
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf normalizes an arbitrary timestamp to the calendar day it reads as in
// its own location. The time-of-day and zone are discarded, not converted:
// 2024-01-10 23:30 +07:00 is the 10th, never the 10th shifted into the 9th.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, m, d)
}

// ParseDay parses a YYYY-MM-DD string into a Day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, ErrInvalidDay
	}
	return DayOf(t), nil
}

// Today returns the current calendar day in the given location.
func Today(loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return DayOf(time.Now().In(loc))
}

func (d Day) String() string {
	return d.Format(DayLayout)
}

// Equal reports whether two Days name the same calendar day.
func (d Day) Equal(other Day) bool {
	return d.Time.Equal(other.Time)
}

func (d Day) Validate() error {
	if d.IsZero() {
		return ErrInvalidDay
	}
	return nil
}

// MarshalJSON encodes the day as "YYYY-MM-DD".
func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" and normalizes it.
func (d *Day) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDay
	}
	parsed, err := ParseDay(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
