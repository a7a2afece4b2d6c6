// Command backtest runs the equity backtesting engine from the CLI:
// it loads daily OHLC CSV bars for a watchlist, wires one of the
// example strategies, replays the date range day by day, and writes the
// run's steps, final portfolio, and metrics to --output-dir.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kestrelquant/backtest/internal/config"
	"github.com/kestrelquant/backtest/internal/logger"
	"github.com/kestrelquant/backtest/internal/market"
	"github.com/kestrelquant/backtest/internal/metric"
	"github.com/kestrelquant/backtest/internal/report"
	"github.com/kestrelquant/backtest/internal/sim"
	"github.com/kestrelquant/backtest/internal/strategy"
	"github.com/kestrelquant/backtest/strategies/buyhold"
	"github.com/kestrelquant/backtest/strategies/emacross"
)

const dateLayout = "2006-01-02"

func main() {
	dataDir := flag.String("data-dir", "", "root of the sharded CSV price store")
	baseURL := flag.String("base-url", "", "remote bar-feed base URL; when set, remote data is tried first with the CSV store as fallback")
	synthetic := flag.Bool("synthetic", false, "generate seeded random-walk bars instead of reading any store")
	symbols := flag.String("symbols", "", "comma-separated watchlist symbols")
	start := flag.String("start", "", "run start date, YYYY-MM-DD")
	end := flag.String("end", "", "run end date, YYYY-MM-DD")
	initialCash := flag.Float64("initial-cash", 100000, "starting cash balance")
	commissionPerShare := flag.Float64("commission-per-share", 0.005, "commission per share")
	commissionMin := flag.Float64("commission-min", 1.00, "minimum commission per trade")
	riskFreeRate := flag.Float64("risk-free-rate", 0.0, "annualized risk-free rate used by Sharpe")
	strategyName := flag.String("strategy", "buyhold", "strategy to run: buyhold or emacross")
	outputDir := flag.String("output-dir", ".", "directory to write run_result.json/steps.csv/metrics.csv")
	verbosity := flag.Int("verbosity", 1, "0=errors,1=info,2=debug,3=trace")
	flag.Parse()

	logger.SetVerbosity(*verbosity)

	if err := run(*dataDir, *baseURL, *symbols, *start, *end, *initialCash, *commissionPerShare, *commissionMin, *riskFreeRate, *strategyName, *outputDir, *synthetic); err != nil {
		logger.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dataDir, baseURL, symbolsCSV, startStr, endStr string, initialCash, commissionPerShare, commissionMin, riskFreeRate float64, strategyName, outputDir string, synthetic bool) error {
	if symbolsCSV == "" || startStr == "" || endStr == "" {
		return fmt.Errorf("--symbols, --start, and --end are required")
	}
	if dataDir == "" && !synthetic {
		return fmt.Errorf("--data-dir is required unless --synthetic is set")
	}
	watchlist := strings.Split(symbolsCSV, ",")

	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}

	cfg := &config.Config{
		DataDir:      dataDir,
		BaseURL:      baseURL,
		Synthetic:    synthetic,
		Watchlist:    watchlist,
		InitialCash:  initialCash,
		Commission:   config.Commission{PerShare: commissionPerShare, Min: commissionMin},
		RiskFreeRate: riskFreeRate,
		Start:        start,
		End:          end,
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	store := buildStore(cfg)
	if err := store.Preload(cfg.Watchlist); err != nil {
		return err
	}
	adapter := market.NewAdapter(store)

	strat, err := buildStrategy(strategyName, cfg.Watchlist)
	if err != nil {
		return err
	}

	s := sim.New(adapter, strat, cfg, metric.Defaults())
	res, err := s.Run()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	if err := report.WriteJSON(&res, outputDir); err != nil {
		return err
	}
	if err := report.WriteStepsCSV(res.Steps, outputDir); err != nil {
		return err
	}
	if err := report.WriteMetricsCSV(res.Metrics, outputDir); err != nil {
		return err
	}

	logger.Infof("wrote run results to %s", outputDir)
	return nil
}

// buildStore picks the data source: seeded synthetic bars, a remote feed
// chained to the local CSV store as fallback, or the CSV store alone.
func buildStore(cfg *config.Config) market.Store {
	if cfg.Synthetic {
		logger.Infof("synthetic provider enabled")
		return market.NewSyntheticStore(1, nil)
	}
	csv := market.NewCSVStore(cfg.DataDir, nil)
	if cfg.BaseURL != "" {
		logger.Infof("remote provider enabled, falling back to %s", cfg.DataDir)
		return market.NewHTTPStore(cfg.BaseURL, csv)
	}
	return csv
}

func buildStrategy(name string, watchlist []string) (strategy.Strategy, error) {
	switch name {
	case "buyhold":
		return buyhold.New(watchlist, 10), nil
	case "emacross":
		return emacross.New(watchlist, 12, 26, market.Daily, 10), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want buyhold or emacross)", name)
	}
}
