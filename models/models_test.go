package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestLocationLookup(t *testing.T) {
	lookup := NewLocationLookup([]LocationLookupItem{
		{ID: "FR", Name: "France", Population: 67000000},
		{ID: "DE", Name: "Germany", Population: 83000000},
		{ID: "AT", Name: "Austria", Population: 9000000},
		{ID: "DE", Name: "Deutschland", Population: 1},
	})

	t.Run("ordered by name and unique by id", func(t *testing.T) {
		var names []string
		for _, item := range lookup.Items() {
			names = append(names, item.Name)
		}
		if diff := cmp.Diff([]string{"Austria", "France", "Germany"}, names); diff != "" {
			t.Errorf("Items() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ordered by id", func(t *testing.T) {
		var ids []string
		for _, item := range lookup.ItemsByID() {
			ids = append(ids, item.ID)
		}
		if diff := cmp.Diff([]string{"AT", "DE", "FR"}, ids); diff != "" {
			t.Errorf("ItemsByID() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("get known id", func(t *testing.T) {
		item, ok := lookup.Get("DE")
		if !ok || item.Name != "Germany" {
			t.Errorf("Get(DE) = %+v, %v", item, ok)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, ok := lookup.Get("XX"); ok {
			t.Errorf("Get(XX) ok = true, want false")
		}
		if lookup.Has("XX") {
			t.Errorf("Has(XX) = true, want false")
		}
	})
}

func TestQuantileURLCodes(t *testing.T) {
	if got := MapQuantileTypeToURL(QuantilePtr(Q50)); got != "50" {
		t.Errorf("MapQuantileTypeToURL(Q50) = %q, want 50", got)
	}
	if got := MapQuantileTypeToURL(QuantilePtr(Q95)); got != "95" {
		t.Errorf("MapQuantileTypeToURL(Q95) = %q, want 95", got)
	}
	if got := MapQuantileTypeToURL(nil); got != "none" {
		t.Errorf("MapQuantileTypeToURL(nil) = %q, want none", got)
	}

	if q, ok := MapURLToQuantileType("95"); !ok || q == nil || *q != Q95 {
		t.Errorf("MapURLToQuantileType(95) = %v, %v", q, ok)
	}
	if q, ok := MapURLToQuantileType("none"); !ok || q != nil {
		t.Errorf("MapURLToQuantileType(none) = %v, %v, want nil, true", q, ok)
	}
	if q, ok := MapURLToQuantileType("NONE"); !ok || q != nil {
		t.Errorf("MapURLToQuantileType(NONE) = %v, %v, want nil, true", q, ok)
	}
	if _, ok := MapURLToQuantileType("bogus"); ok {
		t.Errorf("MapURLToQuantileType(bogus) ok = true, want false")
	}
}

func TestParsers(t *testing.T) {
	if got, ok := ParseForecastTarget("Death"); !ok || got != TargetDeath {
		t.Errorf("ParseForecastTarget(Death) = %v, %v", got, ok)
	}
	if _, ok := ParseForecastTarget("flu"); ok {
		t.Errorf("ParseForecastTarget(flu) ok = true")
	}
	if got, ok := ParseYScale("LOG"); !ok || got != YScaleLog {
		t.Errorf("ParseYScale(LOG) = %v, %v", got, ok)
	}
	if _, ok := ParseYValue("percent"); ok {
		t.Errorf("ParseYValue(percent) ok = true")
	}
	if got, ok := ParseDisplayModeKind("horizon"); !ok || got != DisplayModeHorizon {
		t.Errorf("ParseDisplayModeKind(horizon) = %v, %v", got, ok)
	}

	for in, wantOK := range map[string]bool{"1": true, "4": true, "0": false, "5": false, "two": false} {
		if _, ok := ParseWeeks(in); ok != wantOK {
			t.Errorf("ParseWeeks(%q) ok = %v, want %v", in, ok, wantOK)
		}
	}
}

func TestDisplayModeJSON(t *testing.T) {
	settings := DisplaySettings{
		DisplayMode: ForecastByDateDisplayMode{ForecastDate: day("2023-01-07"), WeeksShown: 2},
		YScale:      YScaleLinear,
		YValue:      YValueCount,
	}

	b, err := json.Marshal(settings)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := map[string]any{
		"confidenceInterval": nil,
		"displayMode": map[string]any{
			"$type":        "ForecastByDateDisplayMode",
			"forecastDate": "2023-01-07",
			"weeksShown":   float64(2),
		},
		"yScale": "linear",
		"yValue": "count",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DisplaySettings JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestForecastIndex_Query(t *testing.T) {
	point := func(model, loc string, target ForecastTarget, timezero string, ahead int) ForecastData {
		return ForecastData{
			Location: loc,
			Model:    model,
			Type:     ForecastTypePoint,
			Timezero: day(timezero),
			Target:   ForecastTargetDescription{TimeAhead: ahead, TargetType: target},
		}
	}

	idx := NewForecastIndex([]ForecastData{
		point("b-model", "DE", TargetCases, "2023-01-02", 1),
		point("a-model", "DE", TargetCases, "2023-01-09", 2),
		point("a-model", "DE", TargetCases, "2023-01-09", 1),
		point("a-model", "DE", TargetDeath, "2023-01-16", 1),
		point("a-model", "FR", TargetCases, "2023-01-16", 1),
	})

	set := idx.Query(Filter{Location: LocationLookupItem{ID: "DE"}, Target: TargetCases})

	wantDates := []time.Time{day("2023-01-09"), day("2023-01-02")}
	if diff := cmp.Diff(wantDates, set.AvailableForecastDates); diff != "" {
		t.Errorf("AvailableForecastDates mismatch (-want +got):\n%s", diff)
	}

	type key struct {
		Model string
		Ahead int
	}
	var got []key
	for _, d := range set.Data {
		got = append(got, key{d.Model, d.Target.TimeAhead})
	}
	want := []key{{"a-model", 1}, {"a-model", 2}, {"b-model", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Data order mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"a-model", "b-model"}, idx.Models()); diff != "" {
		t.Errorf("Models() mismatch (-want +got):\n%s", diff)
	}

	empty := idx.Query(Filter{Location: LocationLookupItem{ID: "XX"}, Target: TargetCases})
	if len(empty.Data) != 0 || len(empty.AvailableForecastDates) != 0 {
		t.Errorf("Query(XX) = %+v, want empty", empty)
	}

	pruned, n := idx.Prune(day("2023-01-09"))
	if n != 1 || pruned.Len() != 4 {
		t.Errorf("Prune() = %d points left, %d removed, want 4, 1", pruned.Len(), n)
	}
}

func TestColorPicker(t *testing.T) {
	p := NewColorPicker("red", "green")

	if got := p.Pick("a"); got != "red" {
		t.Errorf("Pick(a) = %s, want red", got)
	}
	if got := p.Pick("b"); got != "green" {
		t.Errorf("Pick(b) = %s, want green", got)
	}
	if got := p.Pick("a"); got != "red" {
		t.Errorf("second Pick(a) = %s, want red", got)
	}
	if got := p.Pick("c"); got != "red" {
		t.Errorf("Pick(c) = %s, want palette to wrap", got)
	}
}
