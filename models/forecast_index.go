package models

import (
	"sort"
	"time"

	"forecast-dashboard/dates"
)

// ForecastIndex holds forecast points organized by location and target.
// It is immutable once built.
type ForecastIndex struct {
	data   map[string]map[ForecastTarget][]ForecastData // key is location, then target
	models []string
	count  int
}

// NewForecastIndex indexes data by location and target
func NewForecastIndex(data []ForecastData) *ForecastIndex {
	idx := &ForecastIndex{
		data:  make(map[string]map[ForecastTarget][]ForecastData),
		count: len(data),
	}

	seen := make(map[string]bool)
	for _, d := range data {
		targets, exists := idx.data[d.Location]
		if !exists {
			targets = make(map[ForecastTarget][]ForecastData)
			idx.data[d.Location] = targets
		}
		targets[d.Target.TargetType] = append(targets[d.Target.TargetType], d)

		if !seen[d.Model] {
			seen[d.Model] = true
			idx.models = append(idx.models, d.Model)
		}
	}
	sort.Strings(idx.models)

	return idx
}

// Query returns the forecasts for filter with their distinct timezero dates,
// most recent first. Data is ordered by model, timezero, then horizon.
func (idx *ForecastIndex) Query(filter Filter) ForecastDataSet {
	set := ForecastDataSet{Filter: filter}
	if idx == nil {
		return set
	}

	points := idx.data[filter.Location.ID][filter.Target]
	set.Data = make([]ForecastData, len(points))
	copy(set.Data, points)
	sort.SliceStable(set.Data, func(i, j int) bool {
		a, b := set.Data[i], set.Data[j]
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		if !a.Timezero.Equal(b.Timezero) {
			return a.Timezero.Before(b.Timezero)
		}
		return a.Target.TimeAhead < b.Target.TimeAhead
	})

	for _, d := range set.Data {
		if dates.IndexOf(set.AvailableForecastDates, d.Timezero) < 0 {
			set.AvailableForecastDates = append(set.AvailableForecastDates, dates.Day(d.Timezero))
		}
	}
	sort.Slice(set.AvailableForecastDates, func(i, j int) bool {
		return set.AvailableForecastDates[i].After(set.AvailableForecastDates[j])
	})

	return set
}

// Models returns the distinct model names, sorted
func (idx *ForecastIndex) Models() []string {
	if idx == nil {
		return nil
	}
	out := make([]string, len(idx.models))
	copy(out, idx.models)
	return out
}

// Len returns the number of indexed points
func (idx *ForecastIndex) Len() int {
	if idx == nil {
		return 0
	}
	return idx.count
}

// All returns every indexed point in no particular order
func (idx *ForecastIndex) All() []ForecastData {
	if idx == nil {
		return nil
	}
	out := make([]ForecastData, 0, idx.count)
	for _, targets := range idx.data {
		for _, points := range targets {
			out = append(out, points...)
		}
	}
	return out
}

// Prune returns a new index without forecasts issued before cutoff, and the
// number of points removed
func (idx *ForecastIndex) Prune(cutoff time.Time) (*ForecastIndex, int) {
	kept := make([]ForecastData, 0, idx.Len())
	pruned := 0
	for _, d := range idx.All() {
		if d.Timezero.Before(dates.Day(cutoff)) {
			pruned++
			continue
		}
		kept = append(kept, d)
	}
	return NewForecastIndex(kept), pruned
}
