package pipeline

import (
	"errors"
	"fmt"
	"time"

	"forecast-dashboard/models"
	"forecast-dashboard/reactive"
)

// ErrTruthDataMissing reports a filter that points outside the truth table
var ErrTruthDataMissing = errors.New("truth data missing")

// TruthLookupError carries the filter keys missing from the truth table
type TruthLookupError struct {
	LocationID string
	Target     models.ForecastTarget
}

func (e *TruthLookupError) Error() string {
	return fmt.Sprintf("no truth data for location %q and target %q", e.LocationID, e.Target)
}

// Unwrap returns ErrTruthDataMissing
func (e *TruthLookupError) Unwrap() error {
	return ErrTruthDataMissing
}

// TruthDataSet is the observed series for one filter
type TruthDataSet struct {
	Filter    models.Filter      `json:"filter"`
	TruthData []models.TruthData `json:"truthData"`
}

// ForecastDataService answers forecast queries for a changing filter. It
// re-queries whenever the filter changes.
type ForecastDataService interface {
	CreateForecastDataStream(filter reactive.Stream[models.Filter]) reactive.Stream[models.ForecastDataSet]
}

// NewFilter combines the resolved location and target into one shared filter
func NewFilter(location reactive.Stream[models.LocationLookupItem], target reactive.Stream[models.ForecastTarget]) *reactive.Shared[models.Filter] {
	return reactive.ShareReplay(reactive.CombineLatest2[models.LocationLookupItem, models.ForecastTarget](location, target,
		func(l models.LocationLookupItem, t models.ForecastTarget) models.Filter {
			return models.Filter{Location: l, Target: t}
		}))
}

// LookupTruth returns table[location][target]. A missing location or target is
// a *TruthLookupError.
func LookupTruth(table models.TruthTable, filter models.Filter) ([]models.TruthData, error) {
	targets, ok := table[filter.Location.ID]
	if !ok {
		return nil, &TruthLookupError{LocationID: filter.Location.ID, Target: filter.Target}
	}
	data, ok := targets[filter.Target]
	if !ok {
		return nil, &TruthLookupError{LocationID: filter.Location.ID, Target: filter.Target}
	}
	return data, nil
}

// LatestValues maps every location of table to the value of its most recent
// point for target, or 0 when it has none.
func LatestValues(table models.TruthTable, target models.ForecastTarget) models.LocationValueMap {
	out := make(models.LocationValueMap, len(table))
	for location, targets := range table {
		value := 0.0
		var latest time.Time
		found := false
		for _, point := range targets[target] {
			if !found || point.Date.After(latest) {
				latest = point.Date
				value = point.Value
				found = true
			}
		}
		out[location] = value
	}
	return out
}

// DataPipeline joins the filter against the truth table and the forecast source
type DataPipeline struct {
	Filter           *reactive.Shared[models.Filter]
	TruthDataSet     *reactive.Shared[TruthDataSet]
	ForecastDataSet  *reactive.Shared[models.ForecastDataSet]
	AvailableDates   *reactive.Shared[[]time.Time]
	LocationValueMap *reactive.Shared[models.LocationValueMap]
}

// NewDataPipeline wires the joins. A truth lookup failure terminates
// TruthDataSet and everything downstream of it.
func NewDataPipeline(
	truth reactive.Stream[models.TruthTable],
	forecasts ForecastDataService,
	location reactive.Stream[models.LocationLookupItem],
	target reactive.Stream[models.ForecastTarget],
) *DataPipeline {
	filter := NewFilter(location, target)

	truthDataSet := reactive.ShareReplay(reactive.CombineLatest2Err[models.TruthTable, models.Filter](truth, filter,
		func(table models.TruthTable, f models.Filter) (TruthDataSet, error) {
			data, err := LookupTruth(table, f)
			if err != nil {
				return TruthDataSet{}, err
			}
			return TruthDataSet{Filter: f, TruthData: data}, nil
		}))

	forecastDataSet := reactive.ShareReplay(forecasts.CreateForecastDataStream(filter))

	availableDates := reactive.ShareReplay(reactive.Map[models.ForecastDataSet, []time.Time](forecastDataSet,
		func(set models.ForecastDataSet) []time.Time {
			return set.AvailableForecastDates
		}))

	locationValueMap := reactive.ShareReplay(reactive.CombineLatest2[models.TruthTable, models.ForecastTarget](truth, target,
		LatestValues))

	return &DataPipeline{
		Filter:           filter,
		TruthDataSet:     truthDataSet,
		ForecastDataSet:  forecastDataSet,
		AvailableDates:   availableDates,
		LocationValueMap: locationValueMap,
	}
}
