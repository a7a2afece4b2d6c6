package market

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kestrelquant/backtest/internal/logger"
	"github.com/kestrelquant/backtest/internal/status"
)

// Store is the price-store contract: lazy per-symbol loading,
// memoized, returning an inclusive [start,end] slice.
type Store interface {
	// Secondary returns a fallback Store to consult when this one has no
	// data for a symbol, or nil if there is none.
	Secondary() Store
	GetPrices(symbol string, start, end time.Time) (Series, error)
	Preload(symbols []string) error
	Clear()
}

const dateLayout = "2006-01-02"

// CSVStore loads `<dir>/<sym[0]>/<sym[-1]>/<symbol>/data.csv` files on
// first access and memoizes the parsed series.
type CSVStore struct {
	dir       string
	secondary Store
	cache     map[string]Series
}

// NewCSVStore builds a CSVStore rooted at dir, optionally chained to a
// fallback Store consulted when a symbol has no local file.
func NewCSVStore(dir string, secondary Store) *CSVStore {
	return &CSVStore{dir: dir, secondary: secondary, cache: make(map[string]Series)}
}

func (c *CSVStore) Secondary() Store { return c.secondary }

func symbolPath(dir, symbol string) string {
	if symbol == "" {
		return filepath.Join(dir, "data.csv")
	}
	first := string(symbol[0])
	last := string(symbol[len(symbol)-1])
	return filepath.Join(dir, first, last, symbol, "data.csv")
}

// GetPrices loads (once) and returns the inclusive [start,end] slice for
// symbol. A missing symbol with no secondary Store is NotFound; a
// malformed file is Internal with the parse-level message.
func (c *CSVStore) GetPrices(symbol string, start, end time.Time) (Series, error) {
	series, ok := c.cache[symbol]
	if !ok {
		loaded, err := c.load(symbol)
		if err != nil {
			if status.Is(err, status.NotFound) && c.secondary != nil {
				logger.Debugf("market: %s not found locally, falling back to secondary store", symbol)
				return c.secondary.GetPrices(symbol, start, end)
			}
			return nil, err
		}
		c.cache[symbol] = loaded
		series = loaded
	}
	return series.Slice(start, end), nil
}

func (c *CSVStore) load(symbol string) (Series, error) {
	path := symbolPath(c.dir, symbol)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.New(status.NotFound, "no data file for symbol %s", symbol)
		}
		return nil, status.New(status.Internal, "open %s: %v", path, err)
	}
	defer f.Close()

	series, err := parseCSV(f)
	if err != nil {
		return nil, status.New(status.Internal, "parse %s: %v", path, err)
	}
	logger.Infof("market: loaded %d bars for %s from %s", len(series), symbol, path)
	return series, nil
}

func parseCSV(f *os.File) (Series, error) {
	var series Series
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sep := ";"
		if !strings.Contains(line, ";") {
			sep = ","
		}
		fields := strings.Split(line, sep)
		if len(fields) != 7 {
			return nil, fmt.Errorf("expected 7 fields, got %d in line %q", len(fields), line)
		}
		bar, err := parseBarFields(fields)
		if err != nil {
			return nil, err
		}
		series = append(series, bar)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sort.SliceIsSorted(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) }) {
		return nil, fmt.Errorf("dates not strictly increasing")
	}
	for i := 1; i < len(series); i++ {
		if series[i].Date.Equal(series[i-1].Date) {
			return nil, fmt.Errorf("duplicate date %s", series[i].Date.Format(dateLayout))
		}
	}
	return series, nil
}

func parseBarFields(fields []string) (Bar, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return Bar{}, fmt.Errorf("parse date %q: %w", fields[0], err)
	}
	nums := make([]float64, 6)
	for i := 1; i < 7; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("parse field %d (%q): %w", i, fields[i], err)
		}
		nums[i-1] = v
	}
	bar := Bar{Date: date, Open: nums[0], High: nums[1], Low: nums[2], Close: nums[3], AdjustedClose: nums[4], Volume: nums[5]}
	if !bar.Valid() {
		return Bar{}, fmt.Errorf("bar for %s violates OHLC invariant", date.Format(dateLayout))
	}
	return bar, nil
}

// Preload warms the cache for the given symbols.
func (c *CSVStore) Preload(symbols []string) error {
	for _, sym := range symbols {
		if _, err := c.GetPrices(sym, time.Time{}, time.Time{}); err != nil {
			return err
		}
	}
	return nil
}

// Clear drops all cached entries.
func (c *CSVStore) Clear() {
	c.cache = make(map[string]Series)
}

// WriteCSV writes series to the sharded on-disk layout under dir,
// validating sort+uniqueness. Idempotent: writing the same series twice
// yields the same file content. override must be true to overwrite an
// existing file whose content differs.
func WriteCSV(dir, symbol string, series Series, override bool) error {
	if !sort.SliceIsSorted(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) }) {
		return status.New(status.InvalidArgument, "series for %s is not sorted ascending", symbol)
	}
	for i := 1; i < len(series); i++ {
		if series[i].Date.Equal(series[i-1].Date) {
			return status.New(status.InvalidArgument, "series for %s has duplicate date %s", symbol, series[i].Date.Format(dateLayout))
		}
	}

	path := symbolPath(dir, symbol)
	var lines []string
	for _, b := range series {
		lines = append(lines, fmt.Sprintf("%s;%s;%s;%s;%s;%s;%s",
			b.Date.Format(dateLayout),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.AdjustedClose, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		))
	}
	content := []byte(strings.Join(lines, "\n") + "\n")

	if existing, err := os.ReadFile(path); err == nil {
		if string(existing) == string(content) {
			return nil
		}
		if !override {
			return status.New(status.FailedPrecondition, "refusing to overwrite %s without override=true", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return status.New(status.Internal, "mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return status.New(status.Internal, "write %s: %v", path, err)
	}
	return nil
}
