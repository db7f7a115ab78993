package dates

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, _ := time.Parse(Layout, s)
	return t
}

func TestSameDate(t *testing.T) {
	morning := time.Date(2023, 1, 7, 8, 30, 0, 0, time.UTC)
	evening := time.Date(2023, 1, 7, 22, 15, 0, 0, time.UTC)

	if !SameDate(morning, evening) {
		t.Errorf("SameDate(%v, %v) = false, want true", morning, evening)
	}
	if SameDate(morning, morning.AddDate(0, 0, 1)) {
		t.Errorf("SameDate on consecutive days = true, want false")
	}
}

func TestParseISO(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{in: "2023-01-07", want: date("2023-01-07"), wantOK: true},
		{in: "2023-01-07T13:00:00Z", want: date("2023-01-07"), wantOK: true},
		{in: "07/01/2023", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseISO(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseISO(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseISO(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrevSaturday(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "2023-01-09", want: "2023-01-07"}, // Monday
		{in: "2023-01-07", want: "2023-01-07"}, // Saturday
		{in: "2023-01-06", want: "2022-12-31"}, // Friday
		{in: "2023-01-08", want: "2023-01-07"}, // Sunday
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Format(PrevSaturday(date(tt.in))); got != tt.want {
				t.Errorf("PrevSaturday(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestClosest(t *testing.T) {
	available := []time.Time{date("2023-01-16"), date("2023-01-09"), date("2023-01-02")}

	tests := []struct {
		name        string
		target      string
		maxDistance int
		want        string
		wantOK      bool
	}{
		{name: "exact match", target: "2023-01-09", maxDistance: 7, want: "2023-01-09", wantOK: true},
		{name: "previous saturday snaps to monday", target: "2023-01-07", maxDistance: 7, want: "2023-01-09", wantOK: true},
		{name: "too far with limit", target: "2023-03-01", maxDistance: 7, wantOK: false},
		{name: "too far without limit", target: "2023-03-01", maxDistance: 0, want: "2023-01-16", wantOK: true},
		{name: "nearest of two neighbours", target: "2023-01-12", maxDistance: 7, want: "2023-01-09", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Closest(available, date(tt.target), tt.maxDistance)
			if ok != tt.wantOK {
				t.Fatalf("Closest() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && Format(got) != tt.want {
				t.Errorf("Closest() = %s, want %s", Format(got), tt.want)
			}
		})
	}

	if _, ok := Closest(nil, date("2023-01-01"), 0); ok {
		t.Errorf("Closest(nil) ok = true, want false")
	}
}
