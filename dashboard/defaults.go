package dashboard

import (
	"net/url"
	"strconv"
	"time"

	"forecast-dashboard/dates"
	"forecast-dashboard/models"
	"forecast-dashboard/reactive"
	"forecast-dashboard/urlstate"
)

// paramDefault resolves one URL parameter, falling back to def when it is
// absent or invalid. Updates of other parameters are ignored.
func paramDefault[T any](params reactive.Stream[url.Values], name string, parse func(string) (T, bool), def T) reactive.Stream[T] {
	return reactive.Map[url.Values, T](urlstate.ParamChanges(params, name), func(p url.Values) T {
		if p.Has(name) {
			if v, ok := parse(p.Get(name)); ok {
				return v
			}
		}
		return def
	})
}

// stickyPicker remembers a randomly picked location while it stays known
type stickyPicker struct {
	pick   func(items []models.LocationLookupItem) models.LocationLookupItem
	picked string
}

func (s *stickyPicker) choose(lookup *models.LocationLookup) models.LocationLookupItem {
	if item, ok := lookup.Get(s.picked); ok {
		return item
	}
	item := s.pick(lookup.Items())
	s.picked = item.ID
	return item
}

type locationChoice struct {
	item models.LocationLookupItem
	ok   bool
}

// locationDefault is the URL location when known, otherwise a random location.
// Nothing is emitted while the lookup is empty.
func locationDefault(params reactive.Stream[url.Values], locations reactive.Stream[*models.LocationLookup], picker *stickyPicker) reactive.Stream[models.LocationLookupItem] {
	choices := reactive.CombineLatest2[*models.LocationLookup, url.Values](locations, urlstate.ParamChanges(params, models.ParamLocation),
		func(lookup *models.LocationLookup, p url.Values) locationChoice {
			if lookup == nil || lookup.Len() == 0 {
				return locationChoice{}
			}
			if p.Has(models.ParamLocation) {
				if item, ok := lookup.Get(p.Get(models.ParamLocation)); ok {
					return locationChoice{item: item, ok: true}
				}
			}
			return locationChoice{item: picker.choose(lookup), ok: true}
		})

	return reactive.FilterMap[locationChoice, models.LocationLookupItem](choices, func(c locationChoice) (models.LocationLookupItem, bool) {
		return c.item, c.ok
	})
}

// forecastDateDefault is the available date closest to the URL date, else the
// most recent available date, else today
func forecastDateDefault(params reactive.Stream[url.Values], available reactive.Stream[[]time.Time], maxDistance int, now func() time.Time) reactive.Stream[time.Time] {
	return reactive.CombineLatest2[url.Values, []time.Time](urlstate.ParamChanges(params, models.ParamForecastDate), available,
		func(p url.Values, ds []time.Time) time.Time {
			if p.Has(models.ParamForecastDate) {
				if requested, ok := dates.ParseISO(p.Get(models.ParamForecastDate)); ok {
					if closest, ok := dates.Closest(ds, requested, maxDistance); ok {
						return closest
					}
				}
			}
			if len(ds) > 0 {
				return ds[0]
			}
			return dates.Day(now())
		})
}

// urlWriter builds the override callback persisting a setting into the query.
// The parameter is removed when the override is cleared or encode reports no value.
func urlWriter[T any](query *urlstate.QueryState, name string, encode func(T) ([]string, bool)) func(T, bool) {
	return func(v T, set bool) {
		if !set {
			query.Navigate(urlstate.Update{name: nil})
			return
		}
		values, ok := encode(v)
		if !ok {
			query.Navigate(urlstate.Update{name: nil})
			return
		}
		query.Navigate(urlstate.Update{name: values})
	}
}

// unlessDefault encodes v with format, or nothing when v equals def
func unlessDefault[T comparable](def T, format func(T) string) func(T) ([]string, bool) {
	return func(v T) ([]string, bool) {
		if v == def {
			return nil, false
		}
		return []string{format(v)}, true
	}
}

func formatWeeks(w models.Weeks) string {
	return strconv.Itoa(int(w))
}
