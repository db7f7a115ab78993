package store

import (
	"testing"
	"time"

	"forecast-dashboard/models"
)

func TestDataStore_UpdateMergesAndNotifies(t *testing.T) {
	s := NewDataStore()

	var seen []models.Dataset
	unsubscribe := s.Subscribe(func(d models.Dataset) { seen = append(seen, d) })

	lookup := models.NewLocationLookup([]models.LocationLookupItem{{ID: "DE", Name: "Germany"}})
	s.Update(models.Dataset{Locations: lookup, Truth: models.TruthTable{}})
	if s.Ready() {
		t.Error("Ready() = true with forecasts and settings missing")
	}

	s.Update(models.Dataset{Forecasts: models.NewForecastIndex(nil), Settings: &models.DefaultSettings{}})
	if !s.Ready() {
		t.Error("Ready() = false after every part was loaded")
	}
	if s.Snapshot().Locations != lookup {
		t.Error("locations lost by a later partial update")
	}

	unsubscribe()
	s.Update(models.Dataset{Truth: models.TruthTable{"DE": nil}})

	if len(seen) != 2 {
		t.Fatalf("notifications = %d, want 2", len(seen))
	}
	if !seen[1].Complete() {
		t.Error("second notification did not carry the merged dataset")
	}
	if s.Listeners() != 0 {
		t.Errorf("Listeners() = %d, want 0", s.Listeners())
	}
}

func TestDataStore_PruneForecasts(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}

	s := NewDataStore()
	if n := s.PruneForecasts(time.Hour, day("2023-01-01")); n != 0 {
		t.Errorf("PruneForecasts() on empty store = %d", n)
	}

	s.Update(models.Dataset{Forecasts: models.NewForecastIndex([]models.ForecastData{
		{Location: "DE", Model: "a", Timezero: day("2022-12-01")},
		{Location: "DE", Model: "a", Timezero: day("2023-01-02")},
		{Location: "DE", Model: "b", Timezero: day("2023-01-09")},
	})})

	notified := 0
	s.Subscribe(func(models.Dataset) { notified++ })

	if n := s.PruneForecasts(14*24*time.Hour, day("2023-01-10")); n != 1 {
		t.Errorf("PruneForecasts() = %d, want 1", n)
	}
	if got := s.Snapshot().Forecasts.Len(); got != 2 {
		t.Errorf("forecasts left = %d, want 2", got)
	}
	if notified != 1 {
		t.Errorf("notifications = %d, want 1", notified)
	}

	if n := s.PruneForecasts(14*24*time.Hour, day("2023-01-10")); n != 0 || notified != 1 {
		t.Errorf("second PruneForecasts() = %d with %d notifications, want 0 and 1", n, notified)
	}
}

func TestDataStore_PruneForecastsKeepsNewerIndex(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}

	s := NewDataStore()
	s.Update(models.Dataset{Forecasts: models.NewForecastIndex([]models.ForecastData{
		{Location: "DE", Model: "a", Timezero: day("2022-12-01")},
		{Location: "DE", Model: "a", Timezero: day("2023-01-09")},
	})})

	fresh := models.NewForecastIndex([]models.ForecastData{
		{Location: "DE", Model: "a", Timezero: day("2023-01-09")},
		{Location: "DE", Model: "b", Timezero: day("2023-01-16")},
	})
	// a refresh lands while the old index is being pruned
	s.beforeStore = func() {
		s.Update(models.Dataset{Forecasts: fresh})
	}

	if n := s.PruneForecasts(14*24*time.Hour, day("2023-01-10")); n != 0 {
		t.Errorf("PruneForecasts() = %d, want 0 after a concurrent refresh", n)
	}
	if s.Snapshot().Forecasts != fresh {
		t.Error("pruned index replaced the refreshed one")
	}

	s.beforeStore = nil
	if n := s.PruneForecasts(14*24*time.Hour, day("2023-01-10")); n != 0 {
		t.Errorf("PruneForecasts() of the fresh index = %d, want 0", n)
	}
}
