package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"forecast-dashboard/dashboard"
	"forecast-dashboard/models"
	"forecast-dashboard/permalink"
	"forecast-dashboard/store"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func point(location, model string, target models.ForecastTarget, timezero string, ahead int) models.ForecastData {
	return models.ForecastData{
		Location: location,
		Model:    model,
		Type:     models.ForecastTypePoint,
		Value:    100,
		Timezero: day(timezero),
		Target:   models.ForecastTargetDescription{TimeAhead: ahead, TargetType: target, EndDate: day(timezero).AddDate(0, 0, 7*ahead)},
	}
}

func testDataset() models.Dataset {
	return models.Dataset{
		Locations: models.NewLocationLookup([]models.LocationLookupItem{
			{ID: "DE", Name: "Germany", Population: 83000000},
			{ID: "FR", Name: "France", Population: 67000000},
		}),
		Truth: models.TruthTable{
			"DE": {
				models.TargetCases: {{Date: day("2023-01-08"), Value: 25}},
				models.TargetDeath: {{Date: day("2023-01-08"), Value: 3}},
			},
			"FR": {
				models.TargetCases: {{Date: day("2023-01-08"), Value: 7}},
			},
		},
		Forecasts: models.NewForecastIndex([]models.ForecastData{
			point("DE", "a", models.TargetCases, "2023-01-09", 1),
			point("DE", "b", models.TargetCases, "2023-01-16", 1),
			point("DE", "a", models.TargetDeath, "2023-01-16", 1),
		}),
		Settings: &models.DefaultSettings{EnsembleModels: []string{"ens"}},
		Updated:  day("2023-01-20"),
	}
}

type testServer struct {
	server   *Server
	sessions *SessionManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	data := store.NewDataStore()
	data.Update(testDataset())

	sessions := NewSessionManager(data, dashboard.Options{
		Debounce:                time.Millisecond,
		MaxForecastDateDistance: 7,
		Now:                     func() time.Time { return day("2023-02-01") },
	}, zerolog.Nop())
	t.Cleanup(sessions.CloseAll)

	server := NewServer(data, sessions, permalink.NewMemoryStore(), Options{WaitTimeout: 2 * time.Second}, zerolog.Nop())
	return &testServer{server: server, sessions: sessions}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (ts *testServer) createSession(t *testing.T, query string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/sessions", map[string]string{"query": query})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d: %s", w.Code, w.Body.String())
	}
	return decode[map[string]string](t, w)["id"]
}

func TestHealthAndLocations(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/health", nil)
	health := decode[map[string]any](t, w)
	if w.Code != http.StatusOK || health["status"] != "ok" || health["ready"] != true {
		t.Errorf("health = %d %v", w.Code, health)
	}

	tests := []struct {
		path string
		want []string
	}{
		{"/api/locations", []string{"FR", "DE"}},
		{"/api/locations?order=id", []string{"DE", "FR"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, tt.path, nil)
			body := decode[struct {
				Locations []models.LocationLookupItem `json:"locations"`
				Count     int                         `json:"count"`
			}](t, w)

			var ids []string
			for _, l := range body.Locations {
				ids = append(ids, l.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("locations mismatch (-want +got):\n%s", diff)
			}
			if body.Count != 2 {
				t.Errorf("count = %d, want 2", body.Count)
			}
		})
	}
}

func TestSessionView(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, "location=DE")

	w := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/view", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("view status = %d: %s", w.Code, w.Body.String())
	}

	var view struct {
		Filter struct {
			Location models.LocationLookupItem `json:"location"`
		} `json:"filter"`
		DisplaySettings struct {
			DisplayMode map[string]any `json:"displayMode"`
		} `json:"displaySettings"`
		Forecasts []models.ForecastModelData `json:"forecasts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Filter.Location.ID != "DE" || len(view.Forecasts) != 2 {
		t.Errorf("view = %+v", view)
	}
	if view.DisplaySettings.DisplayMode["$type"] != "ForecastByDateDisplayMode" {
		t.Errorf("display mode = %v", view.DisplaySettings.DisplayMode)
	}

	w = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/models", nil)
	names := decode[map[string][]string](t, w)
	if diff := cmp.Diff(map[string][]string{"all": {"a", "b"}, "visible": {"a", "b"}, "ensemble": {"ens"}}, names); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}

	w = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/map", nil)
	m := decode[map[string]any](t, w)
	if m["legend_header"] != "<b>Cases</b><i> / 100,000 inhabitants</i>" {
		t.Errorf("map = %v", m)
	}
}

func TestPatchSettings(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, "location=DE")
	path := "/api/sessions/" + id + "/settings"

	tests := []struct {
		name       string
		patch      map[string]any
		wantStatus int
		wantQuery  url.Values
	}{
		{
			name:       "change target and scale",
			patch:      map[string]any{"target": "death", "yscale": "log", "weeksshown": 3},
			wantStatus: http.StatusOK,
			wantQuery:  url.Values{"location": {"DE"}, "target": {"death"}, "yscale": {"log"}, "weeksshown": {"3"}},
		},
		{
			name:       "null clears an override",
			patch:      map[string]any{"yscale": nil},
			wantStatus: http.StatusOK,
			wantQuery:  url.Values{"location": {"DE"}, "target": {"death"}, "weeksshown": {"3"}},
		},
		{
			name:       "invalid weeks",
			patch:      map[string]any{"weeksahead": 7},
			wantStatus: http.StatusBadRequest,
			wantQuery:  url.Values{"location": {"DE"}, "target": {"death"}, "weeksshown": {"3"}},
		},
		{
			name:       "unknown setting",
			patch:      map[string]any{"colour": "red"},
			wantStatus: http.StatusBadRequest,
			wantQuery:  url.Values{"location": {"DE"}, "target": {"death"}, "weeksshown": {"3"}},
		},
		{
			name:       "rejected patch changes nothing",
			patch:      map[string]any{"target": "cases", "yscale": "bogus"},
			wantStatus: http.StatusBadRequest,
			wantQuery:  url.Values{"location": {"DE"}, "target": {"death"}, "weeksshown": {"3"}},
		},
		{
			name:       "unknown location rejects the whole patch",
			patch:      map[string]any{"location": "XX", "yscale": "log"},
			wantStatus: http.StatusBadRequest,
			wantQuery:  url.Values{"location": {"DE"}, "target": {"death"}, "weeksshown": {"3"}},
		},
		{
			name:       "interval code ignores case",
			patch:      map[string]any{"pi": "NONE"},
			wantStatus: http.StatusOK,
			wantQuery:  url.Values{"location": {"DE"}, "target": {"death"}, "weeksshown": {"3"}, "pi": {"none"}},
		},
		{
			name:       "hide interval and pick models",
			patch:      map[string]any{"pi": "none", "models": []string{"a"}},
			wantStatus: http.StatusOK,
			wantQuery:  url.Values{"location": {"DE"}, "target": {"death"}, "weeksshown": {"3"}, "pi": {"none"}, "models": {"a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPatch, path, tt.patch)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			query, err := url.ParseQuery(decode[map[string]string](t, w)["query"])
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.wantQuery, query); diff != "" {
				t.Errorf("query mismatch (-want +got):\n%s", diff)
			}
		})
	}

	session, err := ts.sessions.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	filter, err := session.Dashboard.Filter()
	if err != nil {
		t.Fatal(err)
	}
	if filter.Location.ID != "DE" || filter.Target != models.TargetDeath {
		t.Errorf("filter = %s/%s after rejected patches, want DE/death", filter.Location.ID, filter.Target)
	}
}

func TestForecastDateNavigation(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, "location=DE")
	base := "/api/sessions/" + id + "/forecast-date/"

	// the view settles the available dates
	if w := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/view", nil); w.Code != http.StatusOK {
		t.Fatalf("view status = %d", w.Code)
	}

	tests := []struct {
		dir        string
		wantStatus int
	}{
		{"next", http.StatusConflict},
		{"prev", http.StatusOK},
		{"prev", http.StatusConflict},
		{"sideways", http.StatusBadRequest},
		{"next", http.StatusOK},
	}
	for _, tt := range tests {
		w := ts.do(t, http.MethodPost, base+tt.dir, nil)
		if w.Code != tt.wantStatus {
			t.Errorf("POST %s status = %d, want %d: %s", tt.dir, w.Code, tt.wantStatus, w.Body.String())
		}
	}
}

func TestExportAndPermalinks(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, "location=DE&target=death")

	w := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/export.xlsx", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "PK") {
		t.Fatalf("export status = %d, body prefix %q", w.Code, w.Body.String()[:min(2, w.Body.Len())])
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}

	w = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/permalinks", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("permalink status = %d: %s", w.Code, w.Body.String())
	}
	created := decode[permalink.Permalink](t, w)

	w = ts.do(t, http.MethodGet, "/api/permalinks/"+created.Code, nil)
	got := decode[permalink.Permalink](t, w)
	if w.Code != http.StatusOK || got.Query != "location=DE&target=death" {
		t.Errorf("permalink = %d %+v", w.Code, got)
	}

	if w := ts.do(t, http.MethodGet, "/api/permalinks/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing permalink status = %d", w.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, http.MethodGet, "/api/sessions/nope/view", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d", w.Code)
	}

	id := ts.createSession(t, "location=FR&target=death")
	w := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/view", nil)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "no truth data for location") {
		t.Errorf("inconsistent view = %d %s", w.Code, w.Body.String())
	}

	if w := ts.do(t, http.MethodDelete, "/api/sessions/"+id, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/sessions/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("deleted session status = %d", w.Code)
	}
}

func TestSessionManager_PruneIdle(t *testing.T) {
	data := store.NewDataStore()
	m := NewSessionManager(data, dashboard.Options{}, zerolog.Nop())
	now := day("2023-01-01")
	m.now = func() time.Time { return now }

	old := m.Create("")
	now = now.Add(30 * time.Minute)
	fresh := m.Create("")
	now = now.Add(45 * time.Minute)

	if closed := m.PruneIdle(time.Hour); closed != 1 {
		t.Fatalf("PruneIdle() = %d, want 1", closed)
	}
	if _, err := m.Get(old.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(old) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("Get(fresh) error = %v", err)
	}
	if data.Listeners() != 1 {
		t.Errorf("store listeners = %d, want 1", data.Listeners())
	}
}
