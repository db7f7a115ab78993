package store

import (
	"sort"
	"sync"
	"time"

	"forecast-dashboard/models"
)

// DataStore holds the latest dataset of every remote source and notifies
// listeners when it changes
type DataStore struct {
	dataset   models.Dataset
	listeners map[int]func(models.Dataset)
	nextID    int
	mutex     sync.RWMutex

	// beforeStore runs between building a pruned index and storing it
	beforeStore func()
}

// NewDataStore creates a new in-memory dataset store
func NewDataStore() *DataStore {
	return &DataStore{
		listeners: make(map[int]func(models.Dataset)),
	}
}

// Update merges the parts present in next into the stored dataset and hands
// the result to every listener
func (s *DataStore) Update(next models.Dataset) models.Dataset {
	merged, _ := s.update(next, nil)
	return merged
}

// update merges next unless check rejects the stored dataset
func (s *DataStore) update(next models.Dataset, check func(current models.Dataset) bool) (models.Dataset, bool) {
	s.mutex.Lock()
	if check != nil && !check(s.dataset) {
		s.mutex.Unlock()
		return models.Dataset{}, false
	}
	s.dataset = s.dataset.Merge(next)
	merged := s.dataset
	listeners := s.snapshotListeners()
	s.mutex.Unlock()

	for _, fn := range listeners {
		fn(merged)
	}
	return merged, true
}

// Snapshot returns the current dataset
func (s *DataStore) Snapshot() models.Dataset {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.dataset
}

// Ready reports whether every part has been loaded at least once
func (s *DataStore) Ready() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.dataset.Complete()
}

// Subscribe registers fn for future updates. The returned function removes it.
func (s *DataStore) Subscribe(fn func(models.Dataset)) func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners[id] = fn

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		delete(s.listeners, id)
	}
}

// Listeners returns the number of registered listeners
func (s *DataStore) Listeners() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.listeners)
}

// PruneForecasts removes forecasts issued more than maxAge before now and
// returns how many points were dropped. The index is rebuilt without the lock;
// when another update replaced it meanwhile, nothing is stored and 0 is returned.
func (s *DataStore) PruneForecasts(maxAge time.Duration, now time.Time) int {
	s.mutex.RLock()
	current := s.dataset.Forecasts
	s.mutex.RUnlock()

	if current == nil {
		return 0
	}

	pruned, count := current.Prune(now.Add(-maxAge))
	if count == 0 {
		return 0
	}

	if s.beforeStore != nil {
		s.beforeStore()
	}

	_, stored := s.update(models.Dataset{Forecasts: pruned}, func(latest models.Dataset) bool {
		return latest.Forecasts == current
	})
	if !stored {
		return 0
	}
	return count
}

func (s *DataStore) snapshotListeners() []func(models.Dataset) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	// Notify in registration order
	sort.Ints(ids)

	out := make([]func(models.Dataset), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}
