package models

import "sort"

// LocationLookupItem is one location known to the hub
type LocationLookupItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Population int64  `json:"population"`
}

// LocationLookup is a read-only collection of locations ordered by name and
// unique by id.
type LocationLookup struct {
	items []LocationLookupItem
	byID  map[string]int
}

// NewLocationLookup sorts items by name. Later duplicates of an id are dropped.
func NewLocationLookup(items []LocationLookupItem) *LocationLookup {
	unique := make([]LocationLookupItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		unique = append(unique, item)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Name < unique[j].Name
	})

	byID := make(map[string]int, len(unique))
	for i, item := range unique {
		byID[item.ID] = i
	}

	return &LocationLookup{items: unique, byID: byID}
}

// Items returns the locations ordered by name
func (l *LocationLookup) Items() []LocationLookupItem {
	out := make([]LocationLookupItem, len(l.items))
	copy(out, l.items)
	return out
}

// ItemsByID returns the locations ordered by id
func (l *LocationLookup) ItemsByID() []LocationLookupItem {
	out := l.Items()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the location with the given id
func (l *LocationLookup) Get(id string) (LocationLookupItem, bool) {
	i, ok := l.byID[id]
	if !ok {
		return LocationLookupItem{}, false
	}
	return l.items[i], true
}

// Has reports whether id is known
func (l *LocationLookup) Has(id string) bool {
	_, ok := l.byID[id]
	return ok
}

// Len returns the number of locations
func (l *LocationLookup) Len() int {
	return len(l.items)
}

// At returns the i-th location in name order
func (l *LocationLookup) At(i int) LocationLookupItem {
	return l.items[i]
}
