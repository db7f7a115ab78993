package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"forecast-dashboard/dates"
)

// YScale is the chart's y axis scale
type YScale string

const (
	YScaleLinear YScale = "linear"
	YScaleLog    YScale = "log"
)

// ParseYScale matches s case-insensitively
func ParseYScale(s string) (YScale, bool) {
	switch YScale(strings.ToLower(s)) {
	case YScaleLinear:
		return YScaleLinear, true
	case YScaleLog:
		return YScaleLog, true
	}
	return "", false
}

// YValue selects absolute counts or incidence per population
type YValue string

const (
	YValueCount     YValue = "count"
	YValueIncidence YValue = "incidence"
)

// ParseYValue matches s case-insensitively
func ParseYValue(s string) (YValue, bool) {
	switch YValue(strings.ToLower(s)) {
	case YValueCount:
		return YValueCount, true
	case YValueIncidence:
		return YValueIncidence, true
	}
	return "", false
}

// DisplayModeKind is the URL-level flag choosing a windowing strategy
type DisplayModeKind string

const (
	DisplayModeDate    DisplayModeKind = "date"
	DisplayModeHorizon DisplayModeKind = "horizon"
)

// ParseDisplayModeKind matches s case-insensitively
func ParseDisplayModeKind(s string) (DisplayModeKind, bool) {
	switch DisplayModeKind(strings.ToLower(s)) {
	case DisplayModeDate:
		return DisplayModeDate, true
	case DisplayModeHorizon:
		return DisplayModeHorizon, true
	}
	return "", false
}

// Weeks is a forecast window length in weeks, 1 to 4
type Weeks int

// Valid reports whether w is within 1..4
func (w Weeks) Valid() bool {
	return w >= 1 && w <= 4
}

// ParseWeeks parses an integer in 1..4
func ParseWeeks(s string) (Weeks, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	w := Weeks(n)
	return w, w.Valid()
}

// DisplayMode is either ForecastByDateDisplayMode or ForecastByHorizonDisplayMode
type DisplayMode interface {
	Kind() DisplayModeKind
	isDisplayMode()
}

// ForecastByDateDisplayMode shows forecasts issued on one date, up to WeeksShown ahead
type ForecastByDateDisplayMode struct {
	ForecastDate time.Time
	WeeksShown   Weeks
}

// Kind returns DisplayModeDate
func (ForecastByDateDisplayMode) Kind() DisplayModeKind { return DisplayModeDate }

func (ForecastByDateDisplayMode) isDisplayMode() {}

// MarshalJSON adds the $type discriminator
func (m ForecastByDateDisplayMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string `json:"$type"`
		ForecastDate string `json:"forecastDate"`
		WeeksShown   Weeks  `json:"weeksShown"`
	}{"ForecastByDateDisplayMode", dates.Format(m.ForecastDate), m.WeeksShown})
}

// ForecastByHorizonDisplayMode shows every forecast up to WeeksAhead ahead
type ForecastByHorizonDisplayMode struct {
	WeeksAhead Weeks
}

// Kind returns DisplayModeHorizon
func (ForecastByHorizonDisplayMode) Kind() DisplayModeKind { return DisplayModeHorizon }

func (ForecastByHorizonDisplayMode) isDisplayMode() {}

// MarshalJSON adds the $type discriminator
func (m ForecastByHorizonDisplayMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string `json:"$type"`
		WeeksAhead Weeks  `json:"weeksAhead"`
	}{"ForecastByHorizonDisplayMode", m.WeeksAhead})
}

// DisplaySettings is the resolved presentation state of the chart
type DisplaySettings struct {
	ConfidenceInterval *QuantileType `json:"confidenceInterval"`
	DisplayMode        DisplayMode   `json:"displayMode"`
	YScale             YScale        `json:"yScale"`
	YValue             YValue        `json:"yValue"`
}

// ChartDataView is the render-ready aggregate. Forecasts are ordered by model name.
type ChartDataView struct {
	DisplaySettings DisplaySettings     `json:"displaySettings"`
	Filter          Filter              `json:"filter"`
	Forecasts       []ForecastModelData `json:"forecasts"`
	TruthData       []TruthData         `json:"truthData"`
	AvailableDates  []time.Time         `json:"availableDates"`
}
