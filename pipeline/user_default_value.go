// Package pipeline composes the dashboard's settings and remote data into a
// render-ready chart view.
package pipeline

import (
	"reflect"
	"time"

	"forecast-dashboard/dates"
	"forecast-dashboard/models"
	"forecast-dashboard/reactive"
)

type override[T any] struct {
	value T
	set   bool
}

// UserDefaultValue is a setting that is either explicitly chosen by the user or
// falls back to a computed default.
type UserDefaultValue[T any] struct {
	user     *reactive.Subject[override[T]]
	value    *reactive.Shared[T]
	onChange func(value T, set bool)
}

// NewUserDefaultValue builds a setting over defaults. onChange, when not nil,
// runs synchronously on every override change; set is false when the override
// was cleared.
func NewUserDefaultValue[T any](defaults reactive.Stream[T], onChange func(value T, set bool)) *UserDefaultValue[T] {
	user := reactive.NewBehaviorSubject(override[T]{})

	merged := reactive.CombineLatest2[override[T], T](user, defaults, func(u override[T], d T) T {
		if u.set {
			return u.value
		}
		return d
	})

	return &UserDefaultValue[T]{
		user: user,
		value: reactive.ShareReplay(reactive.DistinctUntilChangedFunc(merged, func(prev, curr T) bool {
			return SameValue(prev, curr)
		})),
		onChange: onChange,
	}
}

// ChangeValue sets the user override
func (u *UserDefaultValue[T]) ChangeValue(v T) {
	u.user.Next(override[T]{value: v, set: true})
	if u.onChange != nil {
		u.onChange(v, true)
	}
}

// ClearValue removes the user override, reverting to the default
func (u *UserDefaultValue[T]) ClearValue() {
	u.user.Next(override[T]{})
	if u.onChange != nil {
		var zero T
		u.onChange(zero, false)
	}
}

// Override returns the current user override, if any
func (u *UserDefaultValue[T]) Override() (T, bool) {
	o, _ := u.user.Value()
	return o.value, o.set
}

// Value streams the resolved setting
func (u *UserDefaultValue[T]) Value() *reactive.Shared[T] {
	return u.value
}

// Latest returns the most recently resolved value
func (u *UserDefaultValue[T]) Latest() (T, bool) {
	return u.value.Latest()
}

// SameValue is the duplicate check of resolved settings. Dates compare by
// calendar day; everything else compares structurally.
func SameValue(prev, curr any) bool {
	switch p := prev.(type) {
	case time.Time:
		if c, ok := curr.(time.Time); ok {
			return dates.SameDate(p, c)
		}
	case models.ForecastByDateDisplayMode:
		if c, ok := curr.(models.ForecastByDateDisplayMode); ok {
			return dates.SameDate(p.ForecastDate, c.ForecastDate) && p.WeeksShown == c.WeeksShown
		}
	}
	return reflect.DeepEqual(prev, curr)
}
