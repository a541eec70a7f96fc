package app

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/replay/internal/backtest"
	"github.com/newthinker/replay/internal/config"
	"github.com/newthinker/replay/internal/feed"
	"github.com/newthinker/replay/internal/metrics"
	"github.com/newthinker/replay/internal/storage/archive"
	"github.com/newthinker/replay/internal/storage/memory"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ResultStore saves finished results and finds, lists and removes them again
type ResultStore interface {
	Save(ctx context.Context, res *backtest.Result) error
	Find(ctx context.Context, id string) (*backtest.Result, error)
	IDs(ctx context.Context, symbol string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// App wires the price feed, result store, metrics and backtester together
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	provider   feed.Provider
	metrics    *metrics.Registry
	results    ResultStore
	backtester *backtest.Backtester
}

// New creates a new App from a validated config
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	providers := feed.Default(cfg.Data.Path)
	provider, ok := providers.Get(cfg.Data.Source)
	if !ok {
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}

	results, err := openResults(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}

	reg := metrics.NewRegistry()
	bt := backtest.New(provider,
		backtest.WithLogger(logger),
		backtest.WithRecorder(reg),
		backtest.WithArchiver(results),
	)

	logger.Debug("app initialized",
		zap.String("data_source", provider.Name()),
		zap.String("data_path", cfg.Data.Path),
		zap.String("archive", cfg.Archive.Type),
	)

	return &App{
		cfg:        cfg,
		logger:     logger,
		provider:   provider,
		metrics:    reg,
		results:    results,
		backtester: bt,
	}, nil
}

// openResults picks the archive backend, falling back to a bounded
// in-memory store when archiving is disabled
func openResults(cfg *config.Config) (ResultStore, error) {
	switch cfg.Archive.Type {
	case "none", "":
		ttl := time.Duration(cfg.Server.ResultTTLHours) * time.Hour
		return memory.NewStore(cfg.Server.MaxResults, ttl), nil
	}

	storage, err := archive.New(archive.Config{
		Type: cfg.Archive.Type,
		Path: cfg.Archive.Path,
		S3: archive.S3Config{
			Bucket:    cfg.Archive.S3.Bucket,
			Endpoint:  cfg.Archive.S3.Endpoint,
			Region:    cfg.Archive.S3.Region,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			Prefix:    cfg.Archive.S3.Prefix,
		},
	})
	if err != nil {
		return nil, err
	}
	return archive.NewResultStore(storage), nil
}

// Backtester returns the configured backtester
func (a *App) Backtester() *backtest.Backtester { return a.backtester }

// Results returns the result store
func (a *App) Results() ResultStore { return a.results }

// Metrics returns the metrics registry
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Outcome is the result of one symbol in a batch
type Outcome struct {
	Symbol string
	Result *backtest.Result
	Err    error
}

// RunBatch backtests tmpl against every symbol, running at most
// cfg.Workers symbols at once. A failing symbol does not stop the others;
// only cancellation of ctx aborts the batch.
func (a *App) RunBatch(ctx context.Context, symbols []string, tmpl backtest.Request) ([]Outcome, error) {
	outcomes := make([]Outcome, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.cfg.Workers, 1))

	for i, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			req := tmpl
			req.Symbol = symbol
			res, err := a.backtester.Run(gctx, req)
			outcomes[i] = Outcome{Symbol: symbol, Result: res, Err: err}
			if err != nil {
				a.logger.Warn("symbol backtest failed",
					zap.String("symbol", symbol),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
