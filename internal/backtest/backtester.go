package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/strategy"
	"github.com/newthinker/replay/internal/strategy/crossover"
	"github.com/newthinker/replay/internal/strategy/threshold"
	"go.uber.org/zap"
)

// PriceProvider supplies the historical price series for a symbol
type PriceProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error)
}

// Recorder receives run metrics
type Recorder interface {
	RecordBacktest(strategy, status string, duration float64)
	RecordTrade(strategy, kind string)
	RecordArchive(ok bool)
}

// Archiver persists finished results
type Archiver interface {
	Save(ctx context.Context, res *Result) error
}

// Simulate runs one deterministic replay of series under req.
// Configuration errors and malformed series are returned before the replay
// starts; every other degenerate case yields a zero-trade Result with a status.
func Simulate(req Request, series core.PriceSeries) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	var out strategy.Outcome
	switch cfg := req.Strategy.(type) {
	case strategy.Crossover:
		out = crossover.Run(cfg, series, req.InitialCapital)
	case strategy.Threshold:
		out = threshold.Run(cfg, series, req.InitialCapital)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unsupported strategy %T", cfg))
	}

	var benchmark *float64
	if pct, ok := BuyAndHoldSeries(req.InitialCapital, series); ok {
		benchmark = &pct
	}

	return Assemble(req, out, benchmark)
}

// Backtester runs strategy backtests against historical data
type Backtester struct {
	provider PriceProvider
	logger   *zap.Logger
	recorder Recorder
	archiver Archiver
}

// Option configures a Backtester
type Option func(*Backtester)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Backtester) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder reports run metrics to r
func WithRecorder(r Recorder) Option {
	return func(b *Backtester) { b.recorder = r }
}

// WithArchiver saves every finished result to a
func WithArchiver(a Archiver) Option {
	return func(b *Backtester) { b.archiver = a }
}

// New creates a new Backtester with the given price provider
func New(provider PriceProvider, opts ...Option) *Backtester {
	b := &Backtester{
		provider: provider,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run fetches the series for req and simulates it
func (b *Backtester) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if b.provider == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no price provider configured"))
	}

	series, err := b.provider.FetchHistory(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		b.logger.Warn("price fetch failed",
			zap.String("symbol", req.Symbol),
			zap.Error(err),
		)
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}

	return b.RunSeries(ctx, req, series)
}

// RunSeries simulates req over an already materialized series
func (b *Backtester) RunSeries(ctx context.Context, req Request, series core.PriceSeries) (*Result, error) {
	// The replay itself is not interruptible; only check before starting
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	kind := "unknown"
	if req.Strategy != nil {
		kind = string(req.Strategy.Kind())
	}

	start := time.Now()
	res, err := Simulate(req, series)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		b.record(kind, "failed", elapsed)
		b.logger.Warn("backtest rejected",
			zap.String("symbol", req.Symbol),
			zap.String("strategy", kind),
			zap.Error(err),
		)
		return nil, err
	}

	res.ID = uuid.NewString()
	b.record(kind, "complete", elapsed)
	if b.recorder != nil {
		for _, tr := range res.Trades {
			b.recorder.RecordTrade(kind, string(tr.Kind))
		}
	}

	fields := []zap.Field{
		zap.String("id", res.ID),
		zap.String("symbol", res.Symbol),
		zap.String("strategy", kind),
		zap.Int("points", len(series)),
		zap.Int("trades", res.TradeCount),
		zap.Float64("final_value", res.FinalValue),
		zap.Float64("pl_percent", res.ProfitLossPercent),
	}
	if res.Status != "" {
		fields = append(fields, zap.String("status", res.Status))
	}
	b.logger.Info("backtest complete", fields...)

	if b.archiver != nil {
		err := b.archiver.Save(ctx, res)
		if err != nil {
			b.logger.Warn("archiving result failed",
				zap.String("id", res.ID),
				zap.Error(err),
			)
		}
		if b.recorder != nil {
			b.recorder.RecordArchive(err == nil)
		}
	}

	return res, nil
}

func (b *Backtester) record(kind, status string, elapsed float64) {
	if b.recorder != nil {
		b.recorder.RecordBacktest(kind, status, elapsed)
	}
}
