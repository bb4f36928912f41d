package segment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOCK TIME - Wall-clock time of day (contract-local)
// =============================================================================

// ClockTime is a time of day expressed as an offset from midnight.
// 00:00:00 is both the smallest value and the midnight sentinel the
// midnight splitter writes.
type ClockTime time.Duration

const Midnight ClockTime = 0

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ClockOf extracts the wall-clock time of day from an absolute instant.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second)
}

func (c ClockTime) Duration() time.Duration { return time.Duration(c) }

func (c ClockTime) IsMidnight() bool { return c == Midnight }

// Before/After compare wall-clock positions within one day.
func (c ClockTime) Before(o ClockTime) bool { return c < o }
func (c ClockTime) After(o ClockTime) bool  { return c > o }

func (c ClockTime) String() string {
	d := time.Duration(c)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// At anchors the wall-clock time on a calendar day, producing an absolute
// instant in the day's location.
func (c ClockTime) At(day time.Time) time.Time {
	return Day(day).Add(time.Duration(c))
}

// =============================================================================
// DAY & WEEK ARITHMETIC
// =============================================================================

// Day truncates an instant to its calendar day (local midnight).
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func SameDay(a, b time.Time) bool { return Day(a).Equal(Day(b)) }

// NextMidnight returns the first midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	return Day(t).AddDate(0, 0, 1)
}

// StartOfWeek returns the most recent occurrence of the configured week-start
// weekday at or before the given day. Weekly overtime accumulation resets
// at this boundary.
func StartOfWeek(day time.Time, start time.Weekday) time.Time {
	d := Day(day)
	offset := (int(d.Weekday()) - int(start) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// =============================================================================
// HOUR QUANTITIES
// =============================================================================

var secondsPerHour = decimal.NewFromInt(3600)

// HoursOf converts a duration to decimal hours, exact to the second.
func HoursOf(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).Div(secondsPerHour)
}

// DurationOf converts decimal hours to a duration, truncated to the second.
func DurationOf(h decimal.Decimal) time.Duration {
	return time.Duration(h.Mul(secondsPerHour).IntPart()) * time.Second
}
