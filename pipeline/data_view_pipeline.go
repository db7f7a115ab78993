package pipeline

import (
	"reflect"
	"sort"
	"time"

	"forecast-dashboard/dates"
	"forecast-dashboard/models"
	"forecast-dashboard/reactive"
)

// DefaultDebounce is the quiet period of the final view join
const DefaultDebounce = 50 * time.Millisecond

// ColorAssigner picks a display color per model name
type ColorAssigner interface {
	Pick(model string) string
}

// modelsView is the forecast side of the view before the truth join
type modelsView struct {
	settings       models.DisplaySettings
	availableDates []time.Time
	series         []models.ForecastModelData
}

// InWindow reports whether d is shown under mode
func InWindow(d models.ForecastData, mode models.DisplayMode) bool {
	switch m := mode.(type) {
	case models.ForecastByDateDisplayMode:
		return dates.SameDate(d.Timezero, m.ForecastDate) && d.Target.TimeAhead <= int(m.WeeksShown)
	case models.ForecastByHorizonDisplayMode:
		return d.Target.TimeAhead <= int(m.WeeksAhead)
	default:
		return false
	}
}

// BuildModelSeries groups data into one series per model, keeping only the
// points inside the display mode's window. Models without points in the window
// still get an empty series. The result is ordered by model name.
func BuildModelSeries(data []models.ForecastData, mode models.DisplayMode, colors ColorAssigner) []models.ForecastModelData {
	byModel := make(map[string]*models.ForecastModelData)
	order := make([]string, 0)

	for _, d := range data {
		series, exists := byModel[d.Model]
		if !exists {
			series = &models.ForecastModelData{
				Model: d.Model,
				Color: colors.Pick(d.Model),
				Data:  []models.ForecastData{},
			}
			byModel[d.Model] = series
			order = append(order, d.Model)
		}

		if InWindow(d, mode) {
			series.Data = append(series.Data, d)
		}
	}

	sort.Strings(order)
	out := make([]models.ForecastModelData, 0, len(order))
	for _, name := range order {
		out = append(out, *byModel[name])
	}
	return out
}

// DataViewPipeline turns forecasts, truth and display settings into the chart view
type DataViewPipeline struct {
	DataView      *reactive.Shared[models.ChartDataView]
	AllModelNames *reactive.Shared[[]string]
}

// DataViewOptions tune the final join
type DataViewOptions struct {
	Debounce  time.Duration
	Scheduler reactive.Scheduler
}

// NewDataViewPipeline wires series construction and the debounced truth join
func NewDataViewPipeline(
	truth reactive.Stream[TruthDataSet],
	forecasts reactive.Stream[models.ForecastDataSet],
	settings reactive.Stream[models.DisplaySettings],
	colors ColorAssigner,
	opts DataViewOptions,
) *DataViewPipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if colors == nil {
		colors = models.NewColorPicker()
	}

	forecastModels := reactive.ShareReplay(reactive.CombineLatest2[models.ForecastDataSet, models.DisplaySettings](forecasts, settings,
		func(set models.ForecastDataSet, ds models.DisplaySettings) modelsView {
			return modelsView{
				settings:       ds,
				availableDates: set.AvailableForecastDates,
				series:         BuildModelSeries(set.Data, ds.DisplayMode, colors),
			}
		}))

	allModelNames := reactive.ShareReplay(reactive.DistinctUntilChangedFunc(
		reactive.Map[modelsView, []string](forecastModels, func(v modelsView) []string {
			names := make([]string, 0, len(v.series))
			for _, s := range v.series {
				names = append(names, s.Model)
			}
			return names
		}),
		func(prev, curr []string) bool { return reflect.DeepEqual(prev, curr) }))

	joined := reactive.CombineLatest2[modelsView, TruthDataSet](forecastModels, truth,
		func(v modelsView, t TruthDataSet) models.ChartDataView {
			return models.ChartDataView{
				DisplaySettings: v.settings,
				Filter:          t.Filter,
				Forecasts:       v.series,
				TruthData:       t.TruthData,
				AvailableDates:  v.availableDates,
			}
		})

	return &DataViewPipeline{
		DataView:      reactive.ShareReplay(reactive.Debounce(joined, opts.Debounce, opts.Scheduler)),
		AllModelNames: allModelNames,
	}
}
