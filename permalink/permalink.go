// Package permalink stores viewer URL queries under short codes.
package permalink

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown code
var ErrNotFound = errors.New("permalink not found")

// Permalink is a saved viewer query
type Permalink struct {
	Code      string    `json:"code"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}

// Store saves and resolves permalinks. Saving the same query twice returns
// the first permalink.
type Store interface {
	Save(ctx context.Context, query string) (Permalink, error)
	Get(ctx context.Context, code string) (Permalink, error)
}

// NewCode returns a random 12 character code
func NewCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// MemoryStore keeps permalinks in process memory
type MemoryStore struct {
	byCode  map[string]Permalink
	byQuery map[string]string
	mutex   sync.RWMutex
	newCode func() string
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode:  make(map[string]Permalink),
		byQuery: make(map[string]string),
		newCode: NewCode,
		now:     time.Now,
	}
}

// Save stores query under a new code unless it is already saved
func (s *MemoryStore) Save(ctx context.Context, query string) (Permalink, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if code, exists := s.byQuery[query]; exists {
		return s.byCode[code], nil
	}

	code := s.newCode()
	for _, taken := s.byCode[code]; taken; _, taken = s.byCode[code] {
		code = s.newCode()
	}

	p := Permalink{Code: code, Query: query, CreatedAt: s.now()}
	s.byCode[code] = p
	s.byQuery[query] = code
	return p, nil
}

// Get resolves a code
func (s *MemoryStore) Get(ctx context.Context, code string) (Permalink, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, exists := s.byCode[code]
	if !exists {
		return Permalink{}, ErrNotFound
	}
	return p, nil
}

// Len returns the number of stored permalinks
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.byCode)
}

var _ Store = (*MemoryStore)(nil)
