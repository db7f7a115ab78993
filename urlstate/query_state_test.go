package urlstate

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"forecast-dashboard/reactive"
)

func TestQueryState_Navigate(t *testing.T) {
	q := Parse("location=DE&target=death")

	var emitted []string
	sub := reactive.SubscribeFunc(q.Params(), func(v url.Values) {
		emitted = append(emitted, v.Encode())
	})
	defer sub.Unsubscribe()

	q.Navigate(Update{"target": nil, "pi": {"50"}})
	q.Navigate(Update{"pi": {"50"}}) // no change
	q.Set("models", "a", "b")
	q.Set("models")

	want := []string{
		"location=DE&target=death",
		"location=DE&pi=50",
		"location=DE&models=a&models=b&pi=50",
		"location=DE&pi=50",
	}
	if diff := cmp.Diff(want, emitted); diff != "" {
		t.Errorf("emissions mismatch (-want +got):\n%s", diff)
	}
	if got := q.Encode(); got != "location=DE&pi=50" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestQueryState_ValuesIsCopy(t *testing.T) {
	q := Parse("target=cases")
	v := q.Values()
	v.Set("target", "death")

	if got := q.Values().Get("target"); got != "cases" {
		t.Errorf("state mutated through Values(): target = %q", got)
	}
}

func TestParamChanges_SuppressesAbsentParameter(t *testing.T) {
	q := Parse("yscale=log")

	var seen []string
	sub := reactive.SubscribeFunc(ParamChanges(q.Params(), "yscale"), func(v url.Values) {
		seen = append(seen, v.Get("yscale"))
	})
	defer sub.Unsubscribe()

	q.Set("target", "death")  // suppressed, yscale unchanged
	q.Set("yscale", "linear") // passes
	q.Set("yscale")           // suppressed, parameter removed
	q.Set("location", "FR")   // suppressed

	if diff := cmp.Diff([]string{"log", "linear"}, seen); diff != "" {
		t.Errorf("ParamChanges mismatch (-want +got):\n%s", diff)
	}
}

func TestParamChanges_FirstValuePassesWithoutParameter(t *testing.T) {
	q := Parse("")

	count := 0
	sub := reactive.SubscribeFunc(ParamChanges(q.Params(), "target"), func(url.Values) { count++ })
	defer sub.Unsubscribe()

	if count != 1 {
		t.Errorf("emissions = %d, want 1", count)
	}
}
