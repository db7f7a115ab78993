package datasource

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"forecast-dashboard/dates"
	"forecast-dashboard/models"
)

// ErrMissingColumn reports a CSV header without a required column
var ErrMissingColumn = errors.New("missing column")

// forecastRecord is the published JSON shape of one forecast point
type forecastRecord struct {
	ForecastDate string `json:"forecast_date"`
	Target       struct {
		TimeAhead  int    `json:"time_ahead"`
		TargetType string `json:"target_type"`
		EndDate    string `json:"end_date"`
	} `json:"target"`
	Location string   `json:"location"`
	Type     string   `json:"type"`
	Quantile *float64 `json:"quantile"`
	Value    float64  `json:"value"`
	Timezero string   `json:"timezero"`
	Model    string   `json:"model"`
}

// quantileLevels maps published quantile levels to interval bounds
var quantileLevels = []struct {
	level float64
	desc  models.QuantileDescriptor
}{
	{0.025, models.QuantileDescriptor{Type: models.Q95, Point: models.QuantileLower}},
	{0.975, models.QuantileDescriptor{Type: models.Q95, Point: models.QuantileUpper}},
	{0.25, models.QuantileDescriptor{Type: models.Q50, Point: models.QuantileLower}},
	{0.75, models.QuantileDescriptor{Type: models.Q50, Point: models.QuantileUpper}},
}

func quantileDescriptor(level float64) (*models.QuantileDescriptor, bool) {
	for _, q := range quantileLevels {
		if math.Abs(q.level-level) < 1e-9 {
			desc := q.desc
			return &desc, true
		}
	}
	return nil, false
}

// ParseForecasts decodes the forecast JSON array. Records with an unknown
// target, type or unparseable dates are skipped, as are quantile records
// outside the displayed intervals.
func ParseForecasts(r io.Reader) ([]models.ForecastData, error) {
	var records []forecastRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse forecasts: %w", err)
	}

	out := make([]models.ForecastData, 0, len(records))
	for _, rec := range records {
		target, ok := models.ParseForecastTarget(rec.Target.TargetType)
		if !ok {
			continue
		}
		forecastDate, ok1 := dates.ParseISO(rec.ForecastDate)
		timezero, ok2 := dates.ParseISO(rec.Timezero)
		endDate, ok3 := dates.ParseISO(rec.Target.EndDate)
		if !ok1 || !ok2 || !ok3 {
			continue
		}

		d := models.ForecastData{
			ForecastDate: forecastDate,
			Target: models.ForecastTargetDescription{
				TimeAhead:  rec.Target.TimeAhead,
				TargetType: target,
				EndDate:    endDate,
			},
			Location: rec.Location,
			Type:     models.ForecastType(strings.ToLower(rec.Type)),
			Value:    rec.Value,
			Timezero: timezero,
			Model:    rec.Model,
		}

		switch d.Type {
		case models.ForecastTypeObserved, models.ForecastTypePoint:
		case models.ForecastTypeQuantile:
			if rec.Quantile == nil {
				continue
			}
			desc, ok := quantileDescriptor(*rec.Quantile)
			if !ok {
				continue
			}
			d.Quantile = desc
		default:
			continue
		}

		out = append(out, d)
	}

	return out, nil
}

// truthColumns names the truth CSV value column of each target
var truthColumns = map[models.ForecastTarget][]string{
	models.TargetCases:           {"inc case", string(models.TargetCases)},
	models.TargetDeath:           {"inc death", string(models.TargetDeath)},
	models.TargetHospitalisation: {"inc hosp", string(models.TargetHospitalisation)},
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func requireColumns(idx map[string]int, names ...string) error {
	for _, name := range names {
		if _, ok := idx[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

// ParseTruth reads the truth CSV into a table of points ascending by date.
// Empty or unparseable cells are skipped.
func ParseTruth(r io.Reader) (models.TruthTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read truth header: %w", err)
	}
	idx := columnIndex(header)
	if err := requireColumns(idx, "location", "date"); err != nil {
		return nil, err
	}

	valueColumns := make(map[models.ForecastTarget]int)
	for target, names := range truthColumns {
		for _, name := range names {
			if i, ok := idx[name]; ok {
				valueColumns[target] = i
				break
			}
		}
	}

	table := make(models.TruthTable)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read truth row: %w", err)
		}

		location := cell(row, idx["location"])
		date, ok := dates.ParseISO(cell(row, idx["date"]))
		if location == "" || !ok {
			continue
		}

		targets, exists := table[location]
		if !exists {
			targets = make(map[models.ForecastTarget][]models.TruthData)
			table[location] = targets
		}

		for target, col := range valueColumns {
			raw := cell(row, col)
			if raw == "" || strings.EqualFold(raw, "NA") {
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			targets[target] = append(targets[target], models.TruthData{Date: date, Value: value})
		}
	}

	for _, targets := range table {
		for _, points := range targets {
			sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		}
	}

	return table, nil
}

// ParseLocations reads the location CSV. A missing population is read as 0.
func ParseLocations(r io.Reader) ([]models.LocationLookupItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read locations header: %w", err)
	}
	idx := columnIndex(header)
	if err := requireColumns(idx, "location", "location_name"); err != nil {
		return nil, err
	}
	popCol, hasPop := idx["population"]

	var items []models.LocationLookupItem
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read locations row: %w", err)
		}

		item := models.LocationLookupItem{
			ID:   cell(row, idx["location"]),
			Name: cell(row, idx["location_name"]),
		}
		if item.ID == "" {
			continue
		}
		if hasPop {
			if pop, err := strconv.ParseFloat(cell(row, popCol), 64); err == nil {
				item.Population = int64(pop)
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// ParseDefaultSettings decodes the model selection settings
func ParseDefaultSettings(r io.Reader) (models.DefaultSettings, error) {
	var settings models.DefaultSettings
	if err := json.NewDecoder(r).Decode(&settings); err != nil {
		return models.DefaultSettings{}, fmt.Errorf("failed to parse default settings: %w", err)
	}
	return settings, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
