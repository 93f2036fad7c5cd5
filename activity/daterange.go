package activity

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"

	// DefaultWindowDays is the length of the rolling window used when no
	// bounds are given.
	DefaultWindowDays = 365
)

var ErrSingleDay = errors.New("range spans a single day")

// Range is an inclusive span of calendar days, held as UTC midnights.
type Range struct {
	From time.Time
	To   time.Time
}

// ParseRange resolves the --from/--to pair. A missing bound is derived from
// the other one (or from today) using a DefaultWindowDays window.
func ParseRange(from, to string, today time.Time) (Range, error) {
	today = Day(today)

	var r Range
	switch {
	case from == "" && to == "":
		r = Range{From: today.AddDate(0, 0, -DefaultWindowDays), To: today}
	case to == "":
		f, err := parseDate("from", from)
		if err != nil {
			return Range{}, err
		}
		r = Range{From: f, To: today}
	case from == "":
		t, err := parseDate("to", to)
		if err != nil {
			return Range{}, err
		}
		r = Range{From: t.AddDate(0, 0, -DefaultWindowDays), To: t}
	default:
		f, err := parseDate("from", from)
		if err != nil {
			return Range{}, err
		}
		t, err := parseDate("to", to)
		if err != nil {
			return Range{}, err
		}
		r = Range{From: f, To: t}
	}

	if r.From.After(r.To) {
		return Range{}, fmt.Errorf("start date %s is after end date %s",
			r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	return r, nil
}

// ParseBounds parses an optional filter pair. A missing bound stays zero and
// is treated as open by Contains.
func ParseBounds(from, to string) (Range, error) {
	var r Range
	var err error
	if from != "" {
		if r.From, err = parseDate("from", from); err != nil {
			return Range{}, err
		}
	}
	if to != "" {
		if r.To, err = parseDate("to", to); err != nil {
			return Range{}, err
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return Range{}, fmt.Errorf("start date %s is after end date %s",
			r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	return r, nil
}

func parseDate(name, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q (want YYYY-MM-DD)", name, s)
	}
	return t, nil
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// String renders the range as a search qualifier value, e.g. 2024-01-01..2024-12-31.
func (r Range) String() string {
	return r.FromString() + ".." + r.ToString()
}

func (r Range) FromString() string { return r.From.Format(DateLayout) }
func (r Range) ToString() string   { return r.To.Format(DateLayout) }

func (r Range) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// Contains reports whether t falls on a day inside r. A zero bound is open.
func (r Range) Contains(t time.Time) bool {
	d := Day(t)
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	return r.To.IsZero() || !d.After(r.To)
}

// Split halves the range into two contiguous, non-empty ranges.
func (r Range) Split() (Range, Range, error) {
	n := r.Days()
	if n < 2 {
		return Range{}, Range{}, ErrSingleDay
	}
	mid := r.From.AddDate(0, 0, n/2-1)
	return Range{From: r.From, To: mid}, Range{From: mid.AddDate(0, 0, 1), To: r.To}, nil
}
