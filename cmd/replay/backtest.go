package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/newthinker/replay/internal/app"
	"github.com/newthinker/replay/internal/backtest"
	"github.com/newthinker/replay/internal/config"
	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backtestStrategy string
	backtestShort    int
	backtestLong     int
	backtestSignal   string
	backtestEntry    float64
	backtestExit     float64
	backtestCapital  float64
	backtestFrom     string
	backtestTo       string
	backtestSource   string
	backtestDataDir  string
	backtestArchive  string
	backtestCSVOut   string
	backtestJSON     bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest SYMBOL [SYMBOL...]",
	Short: "Run a strategy backtest on one or more symbols",
	Long: `Replay a strategy over historical prices and show performance against
buy-and-hold. Strategy parameters default to the backtest section of the
config file; flags override them.`,
	Example: `  replay backtest BTC --short 10 --long 30 --from 2023-01-01 --to 2024-01-01
  replay backtest ETH SOL --strategy threshold --signal buy --entry 1800 --exit 2400`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&backtestStrategy, "strategy", "", "strategy: crossover or threshold")
	f.IntVar(&backtestShort, "short", 0, "crossover short moving average window")
	f.IntVar(&backtestLong, "long", 0, "crossover long moving average window")
	f.StringVar(&backtestSignal, "signal", "", "threshold signal (buy, sell or hold)")
	f.Float64Var(&backtestEntry, "entry", 0, "threshold entry price")
	f.Float64Var(&backtestExit, "exit", 0, "threshold exit price")
	f.Float64Var(&backtestCapital, "capital", 0, "initial capital")
	f.StringVar(&backtestFrom, "from", "", "start date YYYY-MM-DD")
	f.StringVar(&backtestTo, "to", "", "end date YYYY-MM-DD")
	f.StringVar(&backtestSource, "source", "", "price data format: csv or parquet")
	f.StringVar(&backtestDataDir, "data-dir", "", "directory holding <SYMBOL>.csv or <SYMBOL>.parquet")
	f.StringVar(&backtestArchive, "archive-dir", "", "save results as JSON under this directory")
	f.StringVar(&backtestCSVOut, "csv-out", "", "write each trade log to <dir>/<SYMBOL>_trades.csv")
	f.BoolVar(&backtestJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(backtestCmd)
}

// applyBacktestFlags overrides config values with the flags the user set
func applyBacktestFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("strategy") {
		cfg.Backtest.Strategy = backtestStrategy
	}
	if f.Changed("short") {
		cfg.Backtest.ShortWindow = backtestShort
	}
	if f.Changed("long") {
		cfg.Backtest.LongWindow = backtestLong
	}
	if f.Changed("signal") {
		cfg.Backtest.Signal = backtestSignal
	}
	if f.Changed("entry") {
		entry := backtestEntry
		cfg.Backtest.EntryPrice = &entry
	}
	if f.Changed("exit") {
		exit := backtestExit
		cfg.Backtest.ExitPrice = &exit
	}
	if f.Changed("capital") {
		cfg.Backtest.InitialCapital = backtestCapital
	}
	if f.Changed("source") {
		cfg.Data.Source = backtestSource
	}
	if f.Changed("data-dir") {
		cfg.Data.Path = backtestDataDir
	}
	if f.Changed("archive-dir") {
		cfg.Archive = config.ArchiveConfig{Type: "localfs", Path: backtestArchive}
	}

	// Threshold flags imply the threshold strategy
	if !f.Changed("strategy") && (f.Changed("entry") || f.Changed("exit") || f.Changed("signal")) {
		cfg.Backtest.Strategy = "threshold"
	}
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date format (expected YYYY-MM-DD): %w", name, err)
	}
	return t, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	applyBacktestFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fromDate, err := parseDateFlag("from", backtestFrom)
	if err != nil {
		return err
	}
	toDate, err := parseDateFlag("to", backtestTo)
	if err != nil {
		return err
	}
	// A calendar end date covers the whole day
	if !toDate.IsZero() {
		toDate = core.EndOfDay(toDate)
	}

	stratCfg, err := cfg.Backtest.StrategyConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}

	symbols := make([]string, len(args))
	for i, s := range args {
		symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	log.Debug("running backtests",
		zap.Strings("symbols", symbols),
		zap.String("strategy", stratCfg.Description()),
		zap.Int("workers", cfg.Workers),
	)

	outcomes, err := a.RunBatch(cmd.Context(), symbols, backtest.Request{
		Strategy:       stratCfg,
		InitialCapital: cfg.Backtest.InitialCapital,
		Start:          fromDate,
		End:            toDate,
	})
	if err != nil {
		return err
	}

	return printOutcomes(cmd, outcomes)
}

func printOutcomes(cmd *cobra.Command, outcomes []app.Outcome) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	var failed int
	var results []*backtest.Result
	for i, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(errOut, "%s: %v\n", o.Symbol, o.Err)
			continue
		}
		results = append(results, o.Result)

		if backtestCSVOut != "" {
			if err := writeTradeLog(backtestCSVOut, o.Result); err != nil {
				return err
			}
		}

		if backtestJSON {
			continue
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := report.WriteSummary(out, o.Result); err != nil {
			return err
		}
	}

	if backtestJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d backtests failed", failed, len(outcomes))
	}
	return nil
}

func writeTradeLog(dir string, res *backtest.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating csv output directory: %w", err)
	}
	return report.WriteTradesCSVFile(filepath.Join(dir, res.Symbol+"_trades.csv"), res)
}
