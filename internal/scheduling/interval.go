package scheduling

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return t, nil
}

// Interval is an inclusive range of calendar days.
type Interval struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func SingleDay(d time.Time) Interval {
	d = Day(d)
	return Interval{From: d, To: d}
}

// NewInterval normalises both ends to dates and rejects to < from.
func NewInterval(from, to time.Time) (Interval, error) {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return Interval{}, fmt.Errorf("%w: interval ends %s before it starts %s",
			ErrValidation, to.Format(DateLayout), from.Format(DateLayout))
	}
	return Interval{From: from, To: to}, nil
}

// Overlaps is inclusive on both ends: from <= other.To && to >= other.From.
func (iv Interval) Overlaps(other Interval) bool {
	return !Day(iv.From).After(Day(other.To)) && !Day(iv.To).Before(Day(other.From))
}

func (iv Interval) String() string {
	if Day(iv.From).Equal(Day(iv.To)) {
		return iv.From.Format(DateLayout)
	}
	return iv.From.Format(DateLayout) + ".." + iv.To.Format(DateLayout)
}
