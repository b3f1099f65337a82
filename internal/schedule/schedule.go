// Package schedule contains the pure time and interval logic behind the
// reservation system: parsing of times of day, the overlap test used to
// detect booking conflicts, and the classification rules for active and
// cancellable reservations.  The package has no storage dependencies so
// the same rules can be exercised directly by unit tests and reused by
// any handler that needs them.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight.
// Valid values are in [0, 1440).
type TimeOfDay int

// MinutesPerDay is the number of minutes in one calendar day.
const MinutesPerDay = 24 * 60

// Sentinel errors returned by CanCancel.
var (
	// ErrPastDate means the reservation date is before today; such
	// reservations can no longer be cancelled by anyone.
	ErrPastDate = errors.New("reservation date already passed")
	// ErrStarted means the reservation is for today but its start time
	// has already passed.
	ErrStarted = errors.New("reservation already started")
)

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into a TimeOfDay.  The
// seconds component, when present, is accepted but ignored; MySQL TIME
// columns scan as "HH:MM:SS" strings while API clients send "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// String formats the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Interval is a booked window on a single date: it starts at Start and
// occupies Hours whole hours.  The window is half-open, [Start, End).
type Interval struct {
	Start TimeOfDay
	Hours int
}

// End returns the exclusive end of the interval in minutes since
// midnight.  It may exceed MinutesPerDay for bookings running past
// midnight; comparisons still hold because all intervals on a given
// date share the same origin.
func (iv Interval) End() TimeOfDay {
	return iv.Start + TimeOfDay(iv.Hours*60)
}

// Overlaps reports whether two half-open intervals on the same date and
// space intersect.  Two intervals [s1, e1) and [s2, e2) conflict iff
// s1 < e2 && s2 < e1.  Touching boundaries (e1 == s2) do NOT conflict,
// so back-to-back bookings are allowed.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End() && b.Start < a.End()
}

// ConflictsAny reports whether the candidate interval overlaps any of
// the existing intervals.
func ConflictsAny(candidate Interval, existing []Interval) bool {
	for _, iv := range existing {
		if Overlaps(candidate, iv) {
			return true
		}
	}
	return false
}

// EndTimestamp computes the absolute end of a booking from its date and
// interval.  The date is truncated to midnight UTC before the start and
// duration are added.
func EndTimestamp(date time.Time, iv Interval) time.Time {
	day := DateOnly(date)
	return day.Add(time.Duration(iv.End()) * time.Minute)
}

// IsActive reports whether a booking is still running or has yet to
// begin: its computed end timestamp is strictly after now.
func IsActive(date time.Time, iv Interval, now time.Time) bool {
	return EndTimestamp(date, iv).After(now)
}

// CanCancel decides whether a reservation on the given date with the
// given start time may still be cancelled at instant now.  It returns
// ErrPastDate for reservations dated before today and ErrStarted for
// same-day reservations whose start time has passed.  Ownership is
// checked by the caller; this function only applies the time rules.
func CanCancel(date time.Time, start TimeOfDay, now time.Time) error {
	today := DateOnly(now)
	day := DateOnly(date)
	if day.Before(today) {
		return ErrPastDate
	}
	if day.Equal(today) && start < NowTimeOfDay(now) {
		return ErrStarted
	}
	return nil
}

// DateOnly truncates a timestamp to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NowTimeOfDay converts the clock portion of a timestamp into a
// TimeOfDay, discarding seconds.
func NowTimeOfDay(t time.Time) TimeOfDay {
	u := t.UTC()
	return TimeOfDay(u.Hour()*60 + u.Minute())
}
