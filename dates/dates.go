// Package dates holds calendar-day helpers. Forecast and truth dates carry no
// time of day; they are normalized to midnight UTC.
package dates

import (
	"math"
	"time"
)

// Layout is the ISO calendar date format used in data files and URLs
const Layout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Format renders t as YYYY-MM-DD
func Format(t time.Time) string {
	return t.Format(Layout)
}

// ParseISO parses a YYYY-MM-DD date, also accepting a full RFC 3339 timestamp
func ParseISO(s string) (time.Time, bool) {
	if t, err := time.Parse(Layout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	return time.Time{}, false
}

// SameDate reports whether l and r fall on the same calendar day
func SameDate(l, r time.Time) bool {
	ly, lm, ld := l.Date()
	ry, rm, rd := r.Date()
	return ly == ry && lm == rm && ld == rd
}

// DiffInDays returns the number of whole days from r to l
func DiffInDays(l, r time.Time) int {
	return int(Day(l).Sub(Day(r)).Hours() / 24)
}

// PrevSaturday returns the closest Saturday on or before t
func PrevSaturday(t time.Time) time.Time {
	d := Day(t)
	back := (int(d.Weekday()) - int(time.Saturday) + 7) % 7
	return d.AddDate(0, 0, -back)
}

// Closest returns the candidate nearest to target in days. Ties go to the
// earliest candidate in the slice. maxDistance limits the accepted distance in
// days; zero or less means unlimited.
func Closest(candidates []time.Time, target time.Time, maxDistance int) (time.Time, bool) {
	best := -1
	bestDistance := math.MaxInt
	for i, c := range candidates {
		distance := DiffInDays(c, target)
		if distance < 0 {
			distance = -distance
		}
		if distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}

	if best < 0 {
		return time.Time{}, false
	}
	if maxDistance > 0 && bestDistance > maxDistance {
		return time.Time{}, false
	}
	return candidates[best], true
}

// IndexOf returns the index of the first date on the same day as t, or -1
func IndexOf(ds []time.Time, t time.Time) int {
	for i, d := range ds {
		if SameDate(d, t) {
			return i
		}
	}
	return -1
}
