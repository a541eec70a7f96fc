// Package feed supplies historical price series from local files.
package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/replay/internal/core"
)

// Provider loads the price series of a symbol within [start, end]
type Provider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error)
}

// Sink is a Provider that can also store a series for a symbol
type Sink interface {
	Provider
	Store(ctx context.Context, symbol string, series core.PriceSeries) error
}

// Registry manages price providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Default builds a registry holding the csv and parquet providers rooted at dir
func Default(dir string) *Registry {
	r := NewRegistry()
	r.Register(NewCSV(dir))
	r.Register(NewParquet(dir))
	return r
}

// Convert copies the full history of symbol from one provider to another
// and returns the number of samples written
func Convert(ctx context.Context, from Provider, to Sink, symbol string) (int, error) {
	series, err := from.FetchHistory(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return 0, err
	}
	if err := series.Validate(); err != nil {
		return 0, err
	}
	if err := to.Store(ctx, symbol, series); err != nil {
		return 0, err
	}
	return len(series), nil
}

// normalize orders samples by time and trims them to [start, end]
func normalize(series core.PriceSeries, start, end time.Time) core.PriceSeries {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})
	return series.Between(start, end)
}

func fileName(symbol, ext string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid symbol %q", symbol))
	}
	return s + ext, nil
}
