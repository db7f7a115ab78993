// Package urlstate keeps a viewer's URL query parameters and publishes every
// change as a stream.
package urlstate

import (
	"net/url"
	"sync"

	"forecast-dashboard/reactive"
)

// Update merges into the current parameters. A nil entry removes the parameter.
type Update map[string][]string

// QueryState holds the current query parameters of one viewer
type QueryState struct {
	params  url.Values
	changes *reactive.Subject[url.Values]
	mutex   sync.Mutex
}

// New creates a query state from initial parameters
func New(initial url.Values) *QueryState {
	params := clone(initial)
	return &QueryState{
		params:  params,
		changes: reactive.NewBehaviorSubject(clone(params)),
	}
}

// Parse creates a query state from a raw query string. Invalid input yields an
// empty state.
func Parse(rawQuery string) *QueryState {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}
	return New(values)
}

// Params streams the parameters, starting with the current ones
func (q *QueryState) Params() reactive.Stream[url.Values] {
	return q.changes
}

// Values returns a copy of the current parameters
func (q *QueryState) Values() url.Values {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return clone(q.params)
}

// Encode returns the current parameters as a sorted query string
func (q *QueryState) Encode() string {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.params.Encode()
}

// Navigate merges update into the parameters and emits when the encoded query
// actually changed
func (q *QueryState) Navigate(update Update) {
	q.mutex.Lock()
	before := q.params.Encode()
	for name, values := range update {
		if values == nil {
			q.params.Del(name)
			continue
		}
		q.params[name] = append([]string(nil), values...)
	}
	changed := q.params.Encode() != before
	snapshot := clone(q.params)
	q.mutex.Unlock()

	if changed {
		q.changes.Next(snapshot)
	}
}

// Set replaces one parameter, or removes it when values is empty
func (q *QueryState) Set(name string, values ...string) {
	if len(values) == 0 {
		q.Navigate(Update{name: nil})
		return
	}
	q.Navigate(Update{name: values})
}

// ParamChanges passes on parameter sets that carry name. Sets without it are
// suppressed, except the first one.
func ParamChanges(params reactive.Stream[url.Values], name string) reactive.Stream[url.Values] {
	return reactive.DistinctUntilChangedFunc(params, func(_, curr url.Values) bool {
		return !curr.Has(name)
	})
}

func clone(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for name, values := range v {
		out[name] = append([]string(nil), values...)
	}
	return out
}
