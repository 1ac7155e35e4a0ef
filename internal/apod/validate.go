package apod

import (
	"fmt"
	"regexp"
	"time"
)

// MaxRangeDays bounds the distance between the two ends of a range request.
const MaxRangeDays = 30

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate checks that s is a YYYY-MM-DD date between FirstDate and today.
func ParseDate(s string, today time.Time) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q, use YYYY-MM-DD", ErrInvalidDate, s)
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if d.Before(FirstDate) {
		return time.Time{}, fmt.Errorf("%w: %s is before the first APOD (%s)", ErrInvalidDate, s, FirstDate.Format(DateLayout))
	}
	if d.After(truncateDay(today)) {
		return time.Time{}, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, s)
	}
	return d, nil
}

// ParseRange validates both ends of a range and their order and span.
func ParseRange(start, end string, today time.Time) (time.Time, time.Time, error) {
	s, err := ParseDate(start, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseDate(end, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	if days := int(e.Sub(s).Hours() / 24); days > MaxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d days apart, at most %d allowed", ErrInvalidRange, days, MaxRangeDays)
	}
	return s, e, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
