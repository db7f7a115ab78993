package models

import "time"

// TruthData is one observed value
type TruthData struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TruthTable holds observed series: location id -> target -> points by date
type TruthTable map[string]map[ForecastTarget][]TruthData

// LocationValueMap maps location ids to their latest observed value
type LocationValueMap map[string]float64
