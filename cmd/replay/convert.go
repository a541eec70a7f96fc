package main

import (
	"fmt"
	"strings"

	"github.com/newthinker/replay/internal/feed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	convertSource  string
	convertTarget  string
	convertDataDir string
)

var convertCmd = &cobra.Command{
	Use:   "convert SYMBOL [SYMBOL...]",
	Short: "Convert price files between csv and parquet",
	Long: `Read the full price history of each symbol in one format and write it
next to the original in the other format.`,
	Example: `  replay convert BTC ETH --source csv --target parquet --data-dir ./data`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertSource, "source", "csv", "format to read: csv or parquet")
	f.StringVar(&convertTarget, "target", "parquet", "format to write: csv or parquet")
	f.StringVar(&convertDataDir, "data-dir", "", "directory holding the price files (default from config)")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	dir := cfg.Data.Path
	if convertDataDir != "" {
		dir = convertDataDir
	}
	if convertSource == convertTarget {
		return fmt.Errorf("source and target format are both %q", convertSource)
	}

	reg := feed.Default(dir)
	from, ok := reg.Get(convertSource)
	if !ok {
		return fmt.Errorf("unknown source format %q", convertSource)
	}
	p, ok := reg.Get(convertTarget)
	if !ok {
		return fmt.Errorf("unknown target format %q", convertTarget)
	}
	to, ok := p.(feed.Sink)
	if !ok {
		return fmt.Errorf("format %q cannot be written", convertTarget)
	}

	out := cmd.OutOrStdout()
	for _, arg := range args {
		symbol := strings.ToUpper(strings.TrimSpace(arg))
		n, err := feed.Convert(cmd.Context(), from, to, symbol)
		if err != nil {
			return fmt.Errorf("converting %s: %w", symbol, err)
		}
		log.Info("converted price file",
			zap.String("symbol", symbol),
			zap.String("source", convertSource),
			zap.String("target", convertTarget),
			zap.Int("points", n),
		)
		fmt.Fprintf(out, "%s: %d points %s -> %s\n", symbol, n, convertSource, convertTarget)
	}
	return nil
}
