// Package export writes chart views as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"forecast-dashboard/dates"
	"forecast-dashboard/models"
)

// Sheet names of the workbook
const (
	SheetForecasts = "Forecasts"
	SheetTruth     = "Truth"
	SheetSettings  = "Settings"
)

// Incidence returns value per 100,000 inhabitants, or value itself when the
// population is unknown
func Incidence(value float64, population int64) float64 {
	if population <= 0 {
		return value
	}
	return value * 100000 / float64(population)
}

// displayValue applies the view's y value to a raw value
func displayValue(view models.ChartDataView, value float64) float64 {
	if view.DisplaySettings.YValue == models.YValueIncidence {
		return Incidence(value, view.Filter.Location.Population)
	}
	return value
}

// WriteWorkbook writes view to w. Only the series named in visible are
// exported; nil exports all of them.
func WriteWorkbook(w io.Writer, view models.ChartDataView, visible []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetForecasts); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetTruth, SheetSettings} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	if err := writeRows(f, SheetForecasts, forecastRows(view, visible)); err != nil {
		return err
	}
	if err := writeRows(f, SheetTruth, truthRows(view)); err != nil {
		return err
	}
	if err := writeRows(f, SheetSettings, settingsRows(view)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func forecastRows(view models.ChartDataView, visible []string) [][]any {
	shown := make(map[string]bool, len(visible))
	for _, name := range visible {
		shown[strings.ToLower(name)] = true
	}

	rows := [][]any{{"Model", "Forecast date", "Target date", "Weeks ahead", "Type", "Interval", "Bound", "Value"}}
	for _, series := range view.Forecasts {
		if visible != nil && !shown[strings.ToLower(series.Model)] {
			continue
		}
		for _, d := range series.Data {
			interval, bound := "", ""
			if d.Quantile != nil {
				interval = models.MapQuantileTypeToURL(&d.Quantile.Type)
				bound = boundName(d.Quantile.Point)
			}
			rows = append(rows, []any{
				series.Model,
				dates.Format(d.Timezero),
				dates.Format(d.Target.EndDate),
				d.Target.TimeAhead,
				string(d.Type),
				interval,
				bound,
				displayValue(view, d.Value),
			})
		}
	}
	return rows
}

func boundName(p models.QuantilePointType) string {
	switch p {
	case models.QuantileLower:
		return "lower"
	case models.QuantileUpper:
		return "upper"
	}
	return ""
}

func truthRows(view models.ChartDataView) [][]any {
	rows := [][]any{{"Date", "Value"}}
	for _, d := range view.TruthData {
		rows = append(rows, []any{dates.Format(d.Date), displayValue(view, d.Value)})
	}
	return rows
}

func settingsRows(view models.ChartDataView) [][]any {
	s := view.DisplaySettings
	rows := [][]any{
		{"Location", view.Filter.Location.Name},
		{"Location id", view.Filter.Location.ID},
		{"Target", view.Filter.Target.Label()},
		{"Prediction interval", models.MapQuantileTypeToURL(s.ConfidenceInterval)},
		{"Y scale", string(s.YScale)},
		{"Y value", string(s.YValue)},
	}

	switch m := s.DisplayMode.(type) {
	case models.ForecastByDateDisplayMode:
		rows = append(rows,
			[]any{"Display mode", string(m.Kind())},
			[]any{"Forecast date", dates.Format(m.ForecastDate)},
			[]any{"Weeks shown", int(m.WeeksShown)})
	case models.ForecastByHorizonDisplayMode:
		rows = append(rows,
			[]any{"Display mode", string(m.Kind())},
			[]any{"Weeks ahead", int(m.WeeksAhead)})
	}
	return rows
}
