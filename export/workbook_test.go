package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"forecast-dashboard/models"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func testView(yValue models.YValue) models.ChartDataView {
	forecast := func(model string, value float64, q *models.QuantileDescriptor) models.ForecastData {
		return models.ForecastData{
			Model:    model,
			Type:     models.ForecastTypePoint,
			Value:    value,
			Quantile: q,
			Timezero: day("2023-01-09"),
			Target:   models.ForecastTargetDescription{TimeAhead: 1, TargetType: models.TargetCases, EndDate: day("2023-01-14")},
		}
	}

	return models.ChartDataView{
		DisplaySettings: models.DisplaySettings{
			ConfidenceInterval: models.QuantilePtr(models.Q50),
			DisplayMode:        models.ForecastByDateDisplayMode{ForecastDate: day("2023-01-09"), WeeksShown: 2},
			YScale:             models.YScaleLinear,
			YValue:             yValue,
		},
		Filter: models.Filter{
			Location: models.LocationLookupItem{ID: "DE", Name: "Germany", Population: 200000},
			Target:   models.TargetCases,
		},
		Forecasts: []models.ForecastModelData{
			{Model: "a", Data: []models.ForecastData{
				forecast("a", 1000, nil),
				forecast("a", 800, &models.QuantileDescriptor{Type: models.Q50, Point: models.QuantileLower}),
			}},
			{Model: "b", Data: []models.ForecastData{forecast("b", 2000, nil)}},
		},
		TruthData: []models.TruthData{{Date: day("2023-01-08"), Value: 500}},
	}
}

func readSheets(t *testing.T, buf *bytes.Buffer) map[string][][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := make(map[string][][]string)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			t.Fatalf("GetRows(%s) error = %v", name, err)
		}
		sheets[name] = rows
	}
	return sheets
}

func TestWriteWorkbook(t *testing.T) {
	tests := []struct {
		name      string
		yValue    models.YValue
		visible   []string
		wantRows  [][]string
		wantTruth [][]string
	}{
		{
			name:    "counts of visible models",
			yValue:  models.YValueCount,
			visible: []string{"A"},
			wantRows: [][]string{
				{"Model", "Forecast date", "Target date", "Weeks ahead", "Type", "Interval", "Bound", "Value"},
				{"a", "2023-01-09", "2023-01-14", "1", "point", "", "", "1000"},
				{"a", "2023-01-09", "2023-01-14", "1", "point", "50", "lower", "800"},
			},
			wantTruth: [][]string{{"Date", "Value"}, {"2023-01-08", "500"}},
		},
		{
			name:   "incidence of all models",
			yValue: models.YValueIncidence,
			wantRows: [][]string{
				{"Model", "Forecast date", "Target date", "Weeks ahead", "Type", "Interval", "Bound", "Value"},
				{"a", "2023-01-09", "2023-01-14", "1", "point", "", "", "500"},
				{"a", "2023-01-09", "2023-01-14", "1", "point", "50", "lower", "400"},
				{"b", "2023-01-09", "2023-01-14", "1", "point", "", "", "1000"},
			},
			wantTruth: [][]string{{"Date", "Value"}, {"2023-01-08", "250"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteWorkbook(&buf, testView(tt.yValue), tt.visible); err != nil {
				t.Fatalf("WriteWorkbook() error = %v", err)
			}

			sheets := readSheets(t, &buf)
			if diff := cmp.Diff(tt.wantRows, sheets[SheetForecasts]); diff != "" {
				t.Errorf("forecast rows mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantTruth, sheets[SheetTruth]); diff != "" {
				t.Errorf("truth rows mismatch (-want +got):\n%s", diff)
			}

			settings := sheets[SheetSettings]
			if len(settings) != 9 || settings[0][1] != "Germany" || settings[3][1] != "50" || settings[7][1] != "2023-01-09" {
				t.Errorf("settings rows = %v", settings)
			}
		})
	}
}

func TestIncidence(t *testing.T) {
	if got := Incidence(50, 100000); got != 50 {
		t.Errorf("Incidence(50, 100000) = %v, want 50", got)
	}
	if got := Incidence(50, 0); got != 50 {
		t.Errorf("Incidence(50, 0) = %v, want 50", got)
	}
}
