package pipeline

import (
	"time"

	"forecast-dashboard/models"
	"forecast-dashboard/reactive"
)

// DisplaySettingsInputs are the resolved settings the chart presentation is built from
type DisplaySettingsInputs struct {
	ConfidenceInterval reactive.Stream[*models.QuantileType]
	Mode               reactive.Stream[models.DisplayModeKind]
	DateMode           reactive.Stream[models.DisplayMode]
	HorizonMode        reactive.Stream[models.DisplayMode]
	YScale             reactive.Stream[models.YScale]
	YValue             reactive.Stream[models.YValue]
}

// NewDateDisplayMode builds the date-windowed mode from a forecast date and weeks shown
func NewDateDisplayMode(date reactive.Stream[time.Time], weeksShown reactive.Stream[models.Weeks]) reactive.Stream[models.DisplayMode] {
	return reactive.CombineLatest2[time.Time, models.Weeks](date, weeksShown,
		func(d time.Time, w models.Weeks) models.DisplayMode {
			return models.ForecastByDateDisplayMode{ForecastDate: d, WeeksShown: w}
		})
}

// NewHorizonDisplayMode builds the horizon-windowed mode from weeks ahead
func NewHorizonDisplayMode(weeksAhead reactive.Stream[models.Weeks]) reactive.Stream[models.DisplayMode] {
	return reactive.Map[models.Weeks, models.DisplayMode](weeksAhead, func(w models.Weeks) models.DisplayMode {
		return models.ForecastByHorizonDisplayMode{WeeksAhead: w}
	})
}

// SelectDisplayMode picks the variant named by kind
func SelectDisplayMode(kind models.DisplayModeKind, date, horizon models.DisplayMode) models.DisplayMode {
	if kind == models.DisplayModeHorizon {
		return horizon
	}
	return date
}

// NewDisplaySettings merges the inputs into one DisplaySettings stream that
// recomputes on any single change
func NewDisplaySettings(in DisplaySettingsInputs) *reactive.Shared[models.DisplaySettings] {
	mode := reactive.CombineLatest3[models.DisplayModeKind, models.DisplayMode, models.DisplayMode](
		in.Mode, in.DateMode, in.HorizonMode, SelectDisplayMode)

	return reactive.ShareReplay(reactive.CombineLatest4[*models.QuantileType, models.DisplayMode, models.YScale, models.YValue](
		in.ConfidenceInterval, mode, in.YScale, in.YValue,
		func(ci *models.QuantileType, dm models.DisplayMode, ys models.YScale, yv models.YValue) models.DisplaySettings {
			return models.DisplaySettings{
				ConfidenceInterval: ci,
				DisplayMode:        dm,
				YScale:             ys,
				YValue:             yv,
			}
		}))
}
