package models

import "time"

// DefaultSettings is the hub's configured model selection
type DefaultSettings struct {
	DefaultModels  []string `json:"default_models"`
	EnsembleModels []string `json:"ensemble_models"`
}

// Dataset is a snapshot of the remote sources. A nil part was not loaded.
type Dataset struct {
	Locations *LocationLookup
	Truth     TruthTable
	Forecasts *ForecastIndex
	Settings  *DefaultSettings
	Updated   time.Time
}

// Complete reports whether every part is present
func (d Dataset) Complete() bool {
	return d.Locations != nil && d.Truth != nil && d.Forecasts != nil && d.Settings != nil
}

// Merge overlays the parts present in next onto d
func (d Dataset) Merge(next Dataset) Dataset {
	if next.Locations != nil {
		d.Locations = next.Locations
	}
	if next.Truth != nil {
		d.Truth = next.Truth
	}
	if next.Forecasts != nil {
		d.Forecasts = next.Forecasts
	}
	if next.Settings != nil {
		d.Settings = next.Settings
	}
	if next.Updated.After(d.Updated) {
		d.Updated = next.Updated
	}
	return d
}
