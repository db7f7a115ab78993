package models

import "strings"

// URL query parameter names
const (
	ParamLocation           = "location"
	ParamTarget             = "target"
	ParamPredictionInterval = "pi"
	ParamYScale             = "yscale"
	ParamYValue             = "yvalue"
	ParamDisplayMode        = "displaymode"
	ParamWeeksShown         = "weeksshown"
	ParamWeeksAhead         = "weeksahead"
	ParamForecastDate       = "date"
	ParamVisibleModels      = "models"
)

// Fallback values used when the URL carries no valid value
var DefaultValues = struct {
	Target             ForecastTarget
	PredictionInterval QuantileType
	YScale             YScale
	YValue             YValue
	DisplayMode        DisplayModeKind
	WeeksShown         Weeks
	WeeksAhead         Weeks
}{
	Target:             TargetCases,
	PredictionInterval: Q95,
	YScale:             YScaleLinear,
	YValue:             YValueCount,
	DisplayMode:        DisplayModeDate,
	WeeksShown:         2,
	WeeksAhead:         1,
}

// QuantileNone is the URL code for "no prediction interval"
const QuantileNone = "none"

var quantileURLCodes = []struct {
	q    *QuantileType
	code string
}{
	{quantilePtr(Q50), "50"},
	{quantilePtr(Q95), "95"},
	{nil, QuantileNone},
}

func quantilePtr(q QuantileType) *QuantileType {
	return &q
}

// QuantilePtr returns a pointer to a copy of q
func QuantilePtr(q QuantileType) *QuantileType {
	return quantilePtr(q)
}

// SameQuantile compares two optional quantile types by value
func SameQuantile(a, b *QuantileType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// MapQuantileTypeToURL encodes an optional quantile type. nil encodes as "none".
func MapQuantileTypeToURL(q *QuantileType) string {
	for _, m := range quantileURLCodes {
		if SameQuantile(m.q, q) {
			return m.code
		}
	}
	return ""
}

// MapURLToQuantileType decodes a URL code, ignoring case. "none" yields
// (nil, true); an unknown code yields (nil, false).
func MapURLToQuantileType(code string) (*QuantileType, bool) {
	code = strings.ToLower(code)
	for _, m := range quantileURLCodes {
		if m.code == code {
			if m.q == nil {
				return nil, true
			}
			return quantilePtr(*m.q), true
		}
	}
	return nil, false
}
