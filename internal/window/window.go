// Package window implements the date windows used to select feed items.
package window

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the window variant.
type Kind int

// Supported window kinds.
const (
	KindRecent Kind = iota
	KindSpecificDate
	KindWeek
)

// weekDays is the length of the trailing week window.
const weekDays = 7

// DateLayout is the user-facing date format, e.g. "15.03.2024".
const DateLayout = "02.01.2006"

// Window describes which publication dates a query accepts.
// Bounds are calendar dates in the location passed to Bounds.
type Window struct {
	Kind      Kind
	LimitDays int
	Date      time.Time
}

// Recent accepts items published between today minus limitDays and today.
func Recent(limitDays int) Window {
	if limitDays < 0 {
		limitDays = 0
	}
	return Window{Kind: KindRecent, LimitDays: limitDays}
}

// SpecificDate accepts items published on the calendar date of d.
func SpecificDate(d time.Time) Window {
	return Window{Kind: KindSpecificDate, Date: d}
}

// Week accepts items published during the trailing seven days.
func Week() Window {
	return Window{Kind: KindWeek}
}

// ParseDate parses a "DD.MM.YYYY" date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Bounds returns the inclusive range of calendar dates accepted by the
// window, as midnights in loc.
func (w Window) Bounds(now time.Time, loc *time.Location) (from, to time.Time) {
	today := dateOf(now, loc)
	switch w.Kind {
	case KindSpecificDate:
		d := dateOf(w.Date, loc)
		return d, d
	case KindWeek:
		return today.AddDate(0, 0, -weekDays), today
	default:
		return today.AddDate(0, 0, -w.LimitDays), today
	}
}

// String returns a short description for logs.
func (w Window) String() string {
	switch w.Kind {
	case KindSpecificDate:
		return "date:" + w.Date.Format(DateLayout)
	case KindWeek:
		return "week"
	default:
		return fmt.Sprintf("recent:%d", w.LimitDays)
	}
}

// Filter checks publication times against a window at a fixed moment.
type Filter struct {
	Window   Window
	Now      time.Time
	Location *time.Location
	// SkipLatestInWeek drops today and yesterday from the week window.
	SkipLatestInWeek bool
}

// Accept reports whether t falls inside the window.
func (f Filter) Accept(t time.Time) bool {
	loc := f.location()
	d := dateOf(t, loc)
	from, to := f.Window.Bounds(f.Now, loc)
	if d.Before(from) || d.After(to) {
		return false
	}
	if f.Window.Kind == KindWeek && f.SkipLatestInWeek {
		yesterday := to.AddDate(0, 0, -1)
		if !d.Before(yesterday) {
			return false
		}
	}
	return true
}

func (f Filter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
