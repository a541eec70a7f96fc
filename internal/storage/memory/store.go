// internal/storage/memory/store.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/replay/internal/backtest"
	"github.com/newthinker/replay/internal/core"
)

type entry struct {
	result   *backtest.Result
	storedAt time.Time
}

// Store keeps recent results in memory, evicting the oldest once full.
type Store struct {
	results map[string]*entry
	order   []string // Track insertion order for eviction
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewStore creates a result store holding at most maxSize results for ttl.
// A zero ttl keeps results until they are evicted.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store{
		results: make(map[string]*entry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save stores a copy of res under its run id.
func (s *Store) Save(ctx context.Context, res *backtest.Result) error {
	if res == nil || res.ID == "" {
		return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("result has no id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[res.ID]; !ok {
		// Evict oldest if at capacity
		for len(s.results) >= s.maxSize && len(s.order) > 0 {
			oldest := s.order[0]
			delete(s.results, oldest)
			s.order = s.order[1:]
		}
		s.order = append(s.order, res.ID)
	}

	s.results[res.ID] = &entry{result: res.Clone(), storedAt: s.now()}
	return nil
}

// Find retrieves a copy of the result with the given run id.
func (s *Store) Find(ctx context.Context, id string) (*backtest.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.results[id]
	if !ok || s.expired(e) {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("result %s", id))
	}
	return e.result.Clone(), nil
}

// IDs lists the live result ids for symbol, sorted
func (s *Store) IDs(ctx context.Context, symbol string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for id, e := range s.results {
		if !s.expired(e) && strings.EqualFold(e.result.Symbol, symbol) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the result with the given run id
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.results[id]
	if !ok || s.expired(e) {
		return core.WrapError(core.ErrNotFound, fmt.Errorf("result %s", id))
	}

	delete(s.results, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) expired(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.storedAt) > s.ttl
}
