package models

import (
	"strings"
	"time"
)

// ForecastTarget is the epidemiological signal being forecast
type ForecastTarget string

const (
	TargetCases           ForecastTarget = "cases"
	TargetDeath           ForecastTarget = "death"
	TargetHospitalisation ForecastTarget = "hospitalisation"
)

// ForecastTargets lists every known target in display order
var ForecastTargets = []ForecastTarget{TargetCases, TargetDeath, TargetHospitalisation}

// ParseForecastTarget matches s case-insensitively against the known targets
func ParseForecastTarget(s string) (ForecastTarget, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range ForecastTargets {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Label returns the human readable name of the target
func (t ForecastTarget) Label() string {
	switch t {
	case TargetCases:
		return "Cases"
	case TargetDeath:
		return "Deaths"
	case TargetHospitalisation:
		return "Hospitalisations"
	default:
		return string(t)
	}
}

// QuantileType is the width of a prediction interval
type QuantileType int

const (
	Q95 QuantileType = iota + 1
	Q50
)

// QuantilePointType says which bound of an interval a quantile is
type QuantilePointType int

const (
	QuantileLower QuantilePointType = iota + 1
	QuantileUpper
)

// ForecastType classifies a forecast point
type ForecastType string

const (
	ForecastTypeObserved ForecastType = "observed"
	ForecastTypePoint    ForecastType = "point"
	ForecastTypeQuantile ForecastType = "quantile"
)

// QuantileDescriptor identifies the interval and bound of a quantile point
type QuantileDescriptor struct {
	Type  QuantileType      `json:"type"`
	Point QuantilePointType `json:"point"`
}

// ForecastTargetDescription describes what a forecast point predicts
type ForecastTargetDescription struct {
	TimeAhead  int            `json:"time_ahead"`
	TargetType ForecastTarget `json:"target_type"`
	EndDate    time.Time      `json:"end_date"`
}

// ForecastData is one forecast point. It is never modified after loading.
type ForecastData struct {
	ForecastDate time.Time                 `json:"forecast_date"`
	Target       ForecastTargetDescription `json:"target"`
	Location     string                    `json:"location"`
	Type         ForecastType              `json:"type"`
	Quantile     *QuantileDescriptor       `json:"quantile,omitempty"`
	Value        float64                   `json:"value"`
	Timezero     time.Time                 `json:"timezero"`
	Model        string                    `json:"model"`
}

// ForecastModelData is the series of one model, rendered as one chart series
type ForecastModelData struct {
	Model string         `json:"model"`
	Color string         `json:"color"`
	Data  []ForecastData `json:"data"`
}

// Filter selects the truth and forecast subset in view
type Filter struct {
	Location LocationLookupItem `json:"location"`
	Target   ForecastTarget     `json:"target"`
}

// ForecastDataSet is the forecast data source's answer for one filter.
// AvailableForecastDates is distinct and most recent first.
type ForecastDataSet struct {
	Filter                 Filter         `json:"filter"`
	AvailableForecastDates []time.Time    `json:"availableForecastDates"`
	Data                   []ForecastData `json:"data"`
}
