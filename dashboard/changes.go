package dashboard

import (
	"errors"
	"fmt"
	"time"

	"forecast-dashboard/dates"
	"forecast-dashboard/models"
	"forecast-dashboard/pipeline"
)

// ErrNoForecastDate is returned when no available forecast date is within the
// configured distance of a requested date
var ErrNoForecastDate = errors.New("no forecast available")

// Change is one setting change of a batch passed to Apply
type Change struct {
	name    string
	prepare func(d *Dashboard, p *plan) (func(), error)
}

// Name returns the URL parameter name of the changed setting
func (c Change) Name() string {
	return c.name
}

// plan tracks the filter a batch leads to while its changes are checked
type plan struct {
	filter  models.Filter
	known   bool
	changed bool
}

func (p *plan) setLocation(item models.LocationLookupItem) {
	p.filter.Location = item
	p.changed = true
}

func (p *plan) setTarget(target models.ForecastTarget) {
	p.filter.Target = target
	p.changed = true
}

// Apply checks every change against the state the batch leads to, then
// applies them in order. When a check fails nothing is applied and the error
// names the failing setting.
func (d *Dashboard) Apply(changes ...Change) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, err := d.apply(changes)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// apply runs with d.mu held and returns the name of the rejected change
func (d *Dashboard) apply(changes []Change) (string, error) {
	p := &plan{}
	if d.data.Filter.Err() == nil {
		p.filter, p.known = d.data.Filter.Latest()
	}

	steps := make([]func(), 0, len(changes))
	for _, c := range changes {
		step, err := c.prepare(d, p)
		if err != nil {
			return c.name, err
		}
		steps = append(steps, step)
	}

	for _, step := range steps {
		step()
	}
	return "", nil
}

// plannedDates returns the forecast dates available for the filter the batch
// leads to. A filter changed by the batch is looked up in the published index.
func (d *Dashboard) plannedDates(p *plan) []time.Time {
	if p.changed && p.known {
		if index, ok := d.forecasts.Value(); ok {
			return index.Query(p.filter).AvailableForecastDates
		}
	}
	available, _ := d.data.AvailableDates.Latest()
	return available
}

func override[T any](name string, setting func(d *Dashboard) *pipeline.UserDefaultValue[T], v T) Change {
	return Change{name: name, prepare: func(d *Dashboard, _ *plan) (func(), error) {
		return func() { setting(d).ChangeValue(v) }, nil
	}}
}

// SetLocation selects the location with the given id
func SetLocation(id string) Change {
	return Change{name: models.ParamLocation, prepare: func(d *Dashboard, p *plan) (func(), error) {
		lookup, ok := d.locations.Value()
		if !ok || lookup == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, id)
		}
		item, ok := lookup.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, id)
		}
		p.setLocation(item)
		return func() { d.location.ChangeValue(item) }, nil
	}}
}

// SetTarget selects the forecast target
func SetTarget(target models.ForecastTarget) Change {
	return Change{name: models.ParamTarget, prepare: func(d *Dashboard, p *plan) (func(), error) {
		p.setTarget(target)
		return func() { d.target.ChangeValue(target) }, nil
	}}
}

// SetConfidenceInterval selects the prediction interval; nil hides it
func SetConfidenceInterval(q *models.QuantileType) Change {
	return override(models.ParamPredictionInterval, func(d *Dashboard) *pipeline.UserDefaultValue[*models.QuantileType] {
		return d.predictionInterval
	}, q)
}

// SetYScale selects the y axis scale
func SetYScale(scale models.YScale) Change {
	return override(models.ParamYScale, func(d *Dashboard) *pipeline.UserDefaultValue[models.YScale] {
		return d.yScale
	}, scale)
}

// SetYValue selects the y axis value
func SetYValue(value models.YValue) Change {
	return override(models.ParamYValue, func(d *Dashboard) *pipeline.UserDefaultValue[models.YValue] {
		return d.yValue
	}, value)
}

// SetDisplayMode selects the windowing strategy
func SetDisplayMode(kind models.DisplayModeKind) Change {
	return override(models.ParamDisplayMode, func(d *Dashboard) *pipeline.UserDefaultValue[models.DisplayModeKind] {
		return d.displayMode
	}, kind)
}

func weeks(name string, setting func(d *Dashboard) *pipeline.UserDefaultValue[models.Weeks], w models.Weeks) Change {
	return Change{name: name, prepare: func(d *Dashboard, _ *plan) (func(), error) {
		if !w.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidWeeks, w)
		}
		return func() { setting(d).ChangeValue(w) }, nil
	}}
}

// SetWeeksShown selects the weeks shown in date mode
func SetWeeksShown(w models.Weeks) Change {
	return weeks(models.ParamWeeksShown, func(d *Dashboard) *pipeline.UserDefaultValue[models.Weeks] {
		return d.weeksShown
	}, w)
}

// SetWeeksAhead selects the horizon in horizon mode
func SetWeeksAhead(w models.Weeks) Change {
	return weeks(models.ParamWeeksAhead, func(d *Dashboard) *pipeline.UserDefaultValue[models.Weeks] {
		return d.weeksAhead
	}, w)
}

// SetVisibleModels selects the displayed models
func SetVisibleModels(names []string) Change {
	return override(models.ParamVisibleModels, func(d *Dashboard) *pipeline.UserDefaultValue[[]string] {
		return d.visibleModels
	}, append([]string{}, names...))
}

// SetForecastDate selects the available date closest to date
func SetForecastDate(date time.Time) Change {
	return Change{name: models.ParamForecastDate, prepare: func(d *Dashboard, p *plan) (func(), error) {
		closest, ok := dates.Closest(d.plannedDates(p), date, d.opts.MaxForecastDateDistance)
		if !ok {
			return nil, fmt.Errorf("%w near %s", ErrNoForecastDate, dates.Format(date))
		}
		return func() { d.forecastDate.ChangeValue(closest) }, nil
	}}
}

// ResetSetting clears the override stored under the URL parameter name
func ResetSetting(name string) Change {
	return Change{name: name, prepare: func(d *Dashboard, p *plan) (func(), error) {
		reset, ok := d.clearer(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
		}
		if name == models.ParamLocation || name == models.ParamTarget {
			// the default this reverts to is only known once applied
			p.known = false
		}
		return reset, nil
	}}
}

func (d *Dashboard) clearer(name string) (func(), bool) {
	switch name {
	case models.ParamLocation:
		return d.location.ClearValue, true
	case models.ParamTarget:
		return d.target.ClearValue, true
	case models.ParamPredictionInterval:
		return d.predictionInterval.ClearValue, true
	case models.ParamYScale:
		return d.yScale.ClearValue, true
	case models.ParamYValue:
		return d.yValue.ClearValue, true
	case models.ParamDisplayMode:
		return d.displayMode.ClearValue, true
	case models.ParamWeeksShown:
		return d.weeksShown.ClearValue, true
	case models.ParamWeeksAhead:
		return d.weeksAhead.ClearValue, true
	case models.ParamForecastDate:
		return d.forecastDate.ClearValue, true
	case models.ParamVisibleModels:
		return d.visibleModels.ClearValue, true
	}
	return nil, false
}
