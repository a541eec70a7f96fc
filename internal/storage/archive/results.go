package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/newthinker/replay/internal/backtest"
	"github.com/newthinker/replay/internal/core"
)

const resultsPrefix = "results"

// ResultStore persists backtest results as JSON documents laid out as
// results/<SYMBOL>/<id>.json
type ResultStore struct {
	storage Storage
}

// NewResultStore wraps a storage backend
func NewResultStore(storage Storage) *ResultStore {
	return &ResultStore{storage: storage}
}

func resultPath(symbol, id string) string {
	if symbol == "" {
		symbol = "_"
	}
	return path.Join(resultsPrefix, strings.ToUpper(symbol), id+".json")
}

// Save writes res; it must already carry an id
func (s *ResultStore) Save(ctx context.Context, res *backtest.Result) error {
	if res.ID == "" {
		return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("result has no id"))
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	if err := s.storage.Write(ctx, resultPath(res.Symbol, res.ID), data); err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	return nil
}

// Load reads the result with the given id
func (s *ResultStore) Load(ctx context.Context, symbol, id string) (*backtest.Result, error) {
	data, err := s.storage.Read(ctx, resultPath(symbol, id))
	if err != nil {
		return nil, err
	}
	var res backtest.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("decoding %s: %w", id, err))
	}
	return &res, nil
}

// Find locates a result by id without knowing its symbol
func (s *ResultStore) Find(ctx context.Context, id string) (*backtest.Result, error) {
	p, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, path.Base(path.Dir(p)), id)
}

// Delete removes the result with the given id
func (s *ResultStore) Delete(ctx context.Context, id string) error {
	p, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, p); err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	return nil
}

func (s *ResultStore) locate(ctx context.Context, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") {
		return "", core.WrapError(core.ErrNotFound, fmt.Errorf("result %q", id))
	}
	paths, err := s.storage.List(ctx, resultsPrefix)
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if path.Base(p) == id+".json" {
			return p, nil
		}
	}
	return "", core.WrapError(core.ErrNotFound, fmt.Errorf("result %s", id))
}

// IDs lists the stored result ids for a symbol, sorted
func (s *ResultStore) IDs(ctx context.Context, symbol string) ([]string, error) {
	paths, err := s.storage.List(ctx, path.Join(resultsPrefix, strings.ToUpper(symbol)))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			ids = append(ids, strings.TrimSuffix(path.Base(p), ".json"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}
