// Package dashboard composes the settings and pipelines of one viewer session.
//
// A Dashboard owns the viewer's URL query, one overridable setting per
// adjustable parameter and the data and view pipelines fed by published
// datasets. All entry points are serialized by a single lock, including the
// debounce timers of the view pipeline.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forecast-dashboard/dates"
	"forecast-dashboard/datasource"
	"forecast-dashboard/models"
	"forecast-dashboard/pipeline"
	"forecast-dashboard/reactive"
	"forecast-dashboard/urlstate"
)

var (
	// ErrNoView is returned when no view became available in time
	ErrNoView = errors.New("no view available")
	// ErrUnknownLocation is returned when a location id is not in the lookup
	ErrUnknownLocation = errors.New("unknown location")
	// ErrInvalidWeeks is returned for weeks outside 1..4
	ErrInvalidWeeks = errors.New("weeks must be between 1 and 4")
	// ErrUnknownSetting is returned by Reset for an unknown parameter name
	ErrUnknownSetting = errors.New("unknown setting")
)

// DefaultMaxForecastDateDistance is the default limit, in days, for matching a
// requested forecast date to an available one
const DefaultMaxForecastDateDistance = 7

// Direction moves the forecast date through the available dates
type Direction string

const (
	Prev Direction = "prev"
	Next Direction = "next"
)

// ParseDirection parses "prev" or "next"
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToLower(s)); d {
	case Prev, Next:
		return d, true
	}
	return "", false
}

// Options configure a Dashboard. Zero values select the defaults.
type Options struct {
	Debounce                time.Duration
	MaxForecastDateDistance int
	Scheduler               reactive.Scheduler
	Now                     func() time.Time
	PickLocation            func(items []models.LocationLookupItem) models.LocationLookupItem
	Colors                  pipeline.ColorAssigner
	Forecasts               pipeline.ForecastDataService
	Logger                  zerolog.Logger
}

// Dashboard is the state of one viewer session
type Dashboard struct {
	mu      sync.Mutex
	opts    Options
	logger  zerolog.Logger
	query   *urlstate.QueryState
	closed  bool
	pending int
	changed chan struct{}
	subs    []reactive.Subscription

	locations *reactive.Subject[*models.LocationLookup]
	truth     *reactive.Subject[models.TruthTable]
	forecasts *reactive.Subject[*models.ForecastIndex]
	settings  *reactive.Subject[models.DefaultSettings]

	location           *pipeline.UserDefaultValue[models.LocationLookupItem]
	target             *pipeline.UserDefaultValue[models.ForecastTarget]
	predictionInterval *pipeline.UserDefaultValue[*models.QuantileType]
	yScale             *pipeline.UserDefaultValue[models.YScale]
	yValue             *pipeline.UserDefaultValue[models.YValue]
	displayMode        *pipeline.UserDefaultValue[models.DisplayModeKind]
	weeksShown         *pipeline.UserDefaultValue[models.Weeks]
	weeksAhead         *pipeline.UserDefaultValue[models.Weeks]
	forecastDate       *pipeline.UserDefaultValue[time.Time]
	dateDisplayMode    *pipeline.UserDefaultValue[models.DisplayMode]
	horizonDisplayMode *pipeline.UserDefaultValue[models.DisplayMode]
	visibleModels      *pipeline.UserDefaultValue[[]string]

	data               *pipeline.DataPipeline
	displaySettings    *reactive.Shared[models.DisplaySettings]
	view               *pipeline.DataViewPipeline
	mapLegendHeader    *reactive.Shared[string]
	ensembleModelNames *reactive.Shared[[]string]
}

// New creates a dashboard for the given URL query string
func New(rawQuery string, opts Options) *Dashboard {
	if opts.Debounce <= 0 {
		opts.Debounce = pipeline.DefaultDebounce
	}
	if opts.MaxForecastDateDistance < 0 {
		opts.MaxForecastDateDistance = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PickLocation == nil {
		opts.PickLocation = func(items []models.LocationLookupItem) models.LocationLookupItem {
			return items[rand.Intn(len(items))]
		}
	}
	if opts.Colors == nil {
		opts.Colors = models.NewColorPicker()
	}

	d := &Dashboard{
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "dashboard").Logger(),
		query:     urlstate.Parse(rawQuery),
		changed:   make(chan struct{}),
		locations: reactive.NewReplaySubject[*models.LocationLookup](),
		truth:     reactive.NewReplaySubject[models.TruthTable](),
		forecasts: reactive.NewReplaySubject[*models.ForecastIndex](),
		settings:  reactive.NewReplaySubject[models.DefaultSettings](),
	}

	forecasts := opts.Forecasts
	if forecasts == nil {
		forecasts = datasource.NewIndexForecastService(d.forecasts)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.wire(forecasts)
	return d
}

func (d *Dashboard) wire(forecasts pipeline.ForecastDataService) {
	params := d.query.Params()
	def := models.DefaultValues

	d.location = pipeline.NewUserDefaultValue(
		locationDefault(params, d.locations, &stickyPicker{pick: d.opts.PickLocation}),
		logged(d.logger, models.ParamLocation, urlWriter(d.query, models.ParamLocation, func(l models.LocationLookupItem) ([]string, bool) {
			return []string{l.ID}, true
		})))

	d.target = pipeline.NewUserDefaultValue(
		paramDefault(params, models.ParamTarget, models.ParseForecastTarget, def.Target),
		logged(d.logger, models.ParamTarget, urlWriter(d.query, models.ParamTarget, unlessDefault(def.Target, func(t models.ForecastTarget) string {
			return string(t)
		}))))

	defaultPI := models.QuantilePtr(def.PredictionInterval)
	d.predictionInterval = pipeline.NewUserDefaultValue(
		paramDefault(params, models.ParamPredictionInterval, models.MapURLToQuantileType, defaultPI),
		logged(d.logger, models.ParamPredictionInterval, urlWriter(d.query, models.ParamPredictionInterval, func(q *models.QuantileType) ([]string, bool) {
			if models.SameQuantile(q, defaultPI) {
				return nil, false
			}
			return []string{models.MapQuantileTypeToURL(q)}, true
		})))

	d.yScale = pipeline.NewUserDefaultValue(
		paramDefault(params, models.ParamYScale, models.ParseYScale, def.YScale),
		logged(d.logger, models.ParamYScale, urlWriter(d.query, models.ParamYScale, unlessDefault(def.YScale, func(v models.YScale) string {
			return string(v)
		}))))

	d.yValue = pipeline.NewUserDefaultValue(
		paramDefault(params, models.ParamYValue, models.ParseYValue, def.YValue),
		logged(d.logger, models.ParamYValue, urlWriter(d.query, models.ParamYValue, unlessDefault(def.YValue, func(v models.YValue) string {
			return string(v)
		}))))

	d.displayMode = pipeline.NewUserDefaultValue(
		paramDefault(params, models.ParamDisplayMode, models.ParseDisplayModeKind, def.DisplayMode),
		logged(d.logger, models.ParamDisplayMode, urlWriter(d.query, models.ParamDisplayMode, unlessDefault(def.DisplayMode, func(k models.DisplayModeKind) string {
			return string(k)
		}))))

	d.weeksShown = pipeline.NewUserDefaultValue(
		paramDefault(params, models.ParamWeeksShown, models.ParseWeeks, def.WeeksShown),
		logged(d.logger, models.ParamWeeksShown, urlWriter(d.query, models.ParamWeeksShown, unlessDefault(def.WeeksShown, formatWeeks))))

	d.weeksAhead = pipeline.NewUserDefaultValue(
		paramDefault(params, models.ParamWeeksAhead, models.ParseWeeks, def.WeeksAhead),
		logged(d.logger, models.ParamWeeksAhead, urlWriter(d.query, models.ParamWeeksAhead, unlessDefault(def.WeeksAhead, formatWeeks))))

	d.data = pipeline.NewDataPipeline(d.truth, forecasts, d.location.Value(), d.target.Value())

	d.forecastDate = pipeline.NewUserDefaultValue(
		forecastDateDefault(params, d.data.AvailableDates, d.opts.MaxForecastDateDistance, d.opts.Now),
		logged(d.logger, models.ParamForecastDate, urlWriter(d.query, models.ParamForecastDate, func(t time.Time) ([]string, bool) {
			if dates.SameDate(t, dates.Day(d.opts.Now())) {
				return nil, false
			}
			return []string{dates.Format(dates.PrevSaturday(t))}, true
		})))

	d.dateDisplayMode = pipeline.NewUserDefaultValue(
		pipeline.NewDateDisplayMode(d.forecastDate.Value(), d.weeksShown.Value()), nil)
	d.horizonDisplayMode = pipeline.NewUserDefaultValue(
		pipeline.NewHorizonDisplayMode(d.weeksAhead.Value()), nil)

	d.displaySettings = pipeline.NewDisplaySettings(pipeline.DisplaySettingsInputs{
		ConfidenceInterval: d.predictionInterval.Value(),
		Mode:               d.displayMode.Value(),
		DateMode:           d.dateDisplayMode.Value(),
		HorizonMode:        d.horizonDisplayMode.Value(),
		YScale:             d.yScale.Value(),
		YValue:             d.yValue.Value(),
	})

	d.view = pipeline.NewDataViewPipeline(d.data.TruthDataSet, d.data.ForecastDataSet, d.displaySettings, d.opts.Colors,
		pipeline.DataViewOptions{
			Debounce:  d.opts.Debounce,
			Scheduler: &serialScheduler{d: d, base: d.opts.Scheduler},
		})

	configured := reactive.Map[models.DefaultSettings, []string](d.settings, func(s models.DefaultSettings) []string {
		return s.DefaultModels
	})
	d.ensembleModelNames = reactive.ShareReplay(reactive.Map[models.DefaultSettings, []string](d.settings, func(s models.DefaultSettings) []string {
		return s.EnsembleModels
	}))

	d.visibleModels = pipeline.NewUserDefaultValue(
		pipeline.NewVisibleModelsDefault(params, configured, d.view.AllModelNames),
		logged(d.logger, models.ParamVisibleModels, urlWriter(d.query, models.ParamVisibleModels, func(names []string) ([]string, bool) {
			return names, len(names) > 0
		})))

	d.mapLegendHeader = reactive.ShareReplay(reactive.Map[models.ForecastTarget, string](d.target.Value(), func(t models.ForecastTarget) string {
		return fmt.Sprintf("<b>%s</b><i> / 100,000 inhabitants</i>", t.Label())
	}))

	d.subs = append(d.subs, d.view.DataView.Subscribe(reactive.Observer[models.ChartDataView]{
		Next: func(v models.ChartDataView) {
			d.logger.Debug().
				Str("location", v.Filter.Location.ID).
				Str("target", string(v.Filter.Target)).
				Int("series", len(v.Forecasts)).
				Msg("view updated")
			d.broadcast()
		},
		Error: func(err error) {
			d.logger.Error().Err(err).Msg("view pipeline failed")
			d.broadcast()
		},
	}))

	d.visibleModels.Value().Connect()
	d.data.LocationValueMap.Connect()
	d.mapLegendHeader.Connect()
	d.ensembleModelNames.Connect()
}

// logged traces override changes before persisting them
func logged[T any](logger zerolog.Logger, name string, write func(T, bool)) func(T, bool) {
	return func(v T, set bool) {
		logger.Debug().Str("setting", name).Bool("set", set).Interface("value", v).Msg("override changed")
		write(v, set)
	}
}

// broadcast wakes every View waiter. Called with the lock held.
func (d *Dashboard) broadcast() {
	close(d.changed)
	d.changed = make(chan struct{})
}

func (d *Dashboard) locked(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	f()
}

// Publish feeds the present parts of a dataset into the pipelines
func (d *Dashboard) Publish(ds models.Dataset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	if ds.Locations != nil {
		d.locations.Next(ds.Locations)
	}
	if ds.Settings != nil {
		d.settings.Next(*ds.Settings)
	}
	if ds.Forecasts != nil {
		d.forecasts.Next(ds.Forecasts)
	}
	if ds.Truth != nil {
		d.truth.Next(ds.Truth)
	}
}

// Close detaches the dashboard; later timer callbacks and publishes are ignored
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, sub := range d.subs {
		sub.Unsubscribe()
	}
	d.subs = nil
	d.broadcast()
}

// View returns the current chart view once no debounce is pending. It waits
// for the pipelines to settle until ctx ends, then fails with ErrNoView.
func (d *Dashboard) View(ctx context.Context) (models.ChartDataView, error) {
	for {
		d.mu.Lock()
		if err := d.view.DataView.Err(); err != nil {
			d.mu.Unlock()
			return models.ChartDataView{}, fmt.Errorf("failed to build view: %w", err)
		}
		view, ok := d.view.DataView.Latest()
		if ok && d.pending == 0 {
			d.mu.Unlock()
			return view, nil
		}
		if d.closed {
			d.mu.Unlock()
			return models.ChartDataView{}, ErrNoView
		}
		changed := d.changed
		d.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return models.ChartDataView{}, fmt.Errorf("%w: %v", ErrNoView, ctx.Err())
		}
	}
}

// latest reads a shared node, treating a missing value as ErrNoView
func latest[T any](s *reactive.Shared[T]) (T, error) {
	var zero T
	if err := s.Err(); err != nil {
		return zero, err
	}
	v, ok := s.Latest()
	if !ok {
		return zero, ErrNoView
	}
	return v, nil
}

// Query returns the viewer's current URL query string
func (d *Dashboard) Query() string {
	return d.query.Encode()
}

// LocationValues returns the latest observed value per location for the
// current target
func (d *Dashboard) LocationValues() (models.LocationValueMap, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return latest(d.data.LocationValueMap)
}

// MapLegendHeader returns the legend title of the location map
func (d *Dashboard) MapLegendHeader() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return latest(d.mapLegendHeader)
}

// AllModelNames returns the models present in the current data view
func (d *Dashboard) AllModelNames() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return latest(d.view.AllModelNames)
}

// VisibleModels returns the models selected for display
func (d *Dashboard) VisibleModels() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return latest(d.visibleModels.Value())
}

// EnsembleModelNames returns the configured ensemble models
func (d *Dashboard) EnsembleModelNames() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return latest(d.ensembleModelNames)
}

// DisplaySettings returns the resolved display settings without waiting for
// the view debounce
func (d *Dashboard) DisplaySettings() (models.DisplaySettings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return latest(d.displaySettings)
}

// Filter returns the resolved location and target
func (d *Dashboard) Filter() (models.Filter, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return latest(d.data.Filter)
}

// AvailableDates returns the forecast dates of the current filter, most recent first
func (d *Dashboard) AvailableDates() ([]time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return latest(d.data.AvailableDates)
}

// Locations returns the known locations ordered by name
func (d *Dashboard) Locations() []models.LocationLookupItem {
	if lookup, ok := d.locations.Value(); ok {
		return lookup.Items()
	}
	return nil
}

// LocationsByID returns the known locations ordered by id
func (d *Dashboard) LocationsByID() []models.LocationLookupItem {
	if lookup, ok := d.locations.Value(); ok {
		return lookup.ItemsByID()
	}
	return nil
}

// ChangeLocation overrides the location by id
func (d *Dashboard) ChangeLocation(id string) error {
	return d.change(SetLocation(id))
}

// ChangeTarget overrides the forecast target
func (d *Dashboard) ChangeTarget(target models.ForecastTarget) {
	_ = d.change(SetTarget(target))
}

// ChangeConfidenceInterval overrides the prediction interval; nil hides it
func (d *Dashboard) ChangeConfidenceInterval(q *models.QuantileType) {
	_ = d.change(SetConfidenceInterval(q))
}

// ChangeYScale overrides the y axis scale
func (d *Dashboard) ChangeYScale(scale models.YScale) {
	_ = d.change(SetYScale(scale))
}

// ChangeYValue overrides the y axis value
func (d *Dashboard) ChangeYValue(value models.YValue) {
	_ = d.change(SetYValue(value))
}

// ChangeDisplayMode overrides the windowing strategy
func (d *Dashboard) ChangeDisplayMode(kind models.DisplayModeKind) {
	_ = d.change(SetDisplayMode(kind))
}

// ChangeDateWeeksShown overrides the weeks shown in date mode
func (d *Dashboard) ChangeDateWeeksShown(w models.Weeks) error {
	return d.change(SetWeeksShown(w))
}

// ChangeHorizonWeeksAhead overrides the horizon in horizon mode
func (d *Dashboard) ChangeHorizonWeeksAhead(w models.Weeks) error {
	return d.change(SetWeeksAhead(w))
}

// ChangeVisibleModels overrides the displayed models
func (d *Dashboard) ChangeVisibleModels(names []string) {
	_ = d.change(SetVisibleModels(names))
}

// ChangeForecastDate selects the available date closest to date. It reports
// false when no available date is within the configured distance.
func (d *Dashboard) ChangeForecastDate(date time.Time) bool {
	return d.change(SetForecastDate(date)) == nil
}

// change applies a single change, returning its error unwrapped
func (d *Dashboard) change(c Change) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.apply([]Change{c})
	return err
}

// ChangeForecastDateByDir moves to the previous or next available date
func (d *Dashboard) ChangeForecastDateByDir(dir Direction) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	date, ok := d.dateByDir(dir)
	if !ok {
		return false
	}
	d.forecastDate.ChangeValue(date)
	return true
}

// CanExecPrev reports whether an older forecast date is available
func (d *Dashboard) CanExecPrev() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.dateByDir(Prev)
	return ok
}

// CanExecNext reports whether a newer forecast date is available
func (d *Dashboard) CanExecNext() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.dateByDir(Next)
	return ok
}

// dateByDir finds the neighbour of the current forecast date. Only date mode
// navigates; available dates are ordered most recent first.
func (d *Dashboard) dateByDir(dir Direction) (time.Time, bool) {
	settings, ok := d.displaySettings.Latest()
	if !ok {
		return time.Time{}, false
	}
	mode, ok := settings.DisplayMode.(models.ForecastByDateDisplayMode)
	if !ok {
		return time.Time{}, false
	}

	available, _ := d.data.AvailableDates.Latest()
	idx := dates.IndexOf(available, mode.ForecastDate)
	if idx < 0 {
		return time.Time{}, false
	}

	switch dir {
	case Next:
		idx--
	case Prev:
		idx++
	default:
		return time.Time{}, false
	}
	if idx < 0 || idx >= len(available) {
		return time.Time{}, false
	}
	return available[idx], true
}

// Reset clears the override of the setting stored under the URL parameter name
func (d *Dashboard) Reset(name string) error {
	return d.change(ResetSetting(name))
}
