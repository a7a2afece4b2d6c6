package market

import (
	"time"

	"github.com/kestrelquant/backtest/internal/status"
)

// IndicatorPoint is one computed indicator value at a period-end date (or
// the trailing provisional date when asOf falls mid-period).
type IndicatorPoint struct {
	Date  time.Time
	Value float64
}

// Computer is the indicator contract: one function per indicator name, sharing
// the same (bars, period, cadence, asOf) signature so new
// indicators register the same way ComputeEMA does.
type Computer func(bars Series, period int, cadence Cadence, asOf time.Time) ([]IndicatorPoint, error)

var registry = map[string]Computer{
	"EMA": ComputeEMA,
}

// RegisterComputer adds (or replaces) an indicator name in the dispatch
// table. Built-ins register themselves at package init; callers may add
// more before running a simulation.
func RegisterComputer(name string, c Computer) {
	registry[name] = c
}

// Dispatch looks up a registered Computer by name.
func Dispatch(name string) (Computer, error) {
	c, ok := registry[name]
	if !ok {
		return nil, status.New(status.InvalidArgument, "unknown indicator %q", name)
	}
	return c, nil
}

// ComputeEMA computes the exponential moving average over bars converted
// to cadence: an SMA seed over the first `period` closes, then
// EMA <- (c - EMA) * (2/(period+1)) + EMA for every subsequent close.
func ComputeEMA(bars Series, period int, cadence Cadence, asOf time.Time) ([]IndicatorPoint, error) {
	if period <= 0 {
		return nil, status.New(status.InvalidArgument, "period must be positive, got %d", period)
	}
	if len(bars) == 0 {
		return nil, status.New(status.InvalidArgument, "no bars supplied")
	}

	periodBars := Convert(bars, cadence, asOf)
	if len(periodBars) < period {
		return nil, nil
	}

	var points []IndicatorPoint
	var seed float64
	for i := 0; i < period; i++ {
		seed += periodBars[i].Close
	}
	seed /= float64(period)
	points = append(points, IndicatorPoint{Date: periodBars[period-1].Date, Value: seed})

	k := 2.0 / (float64(period) + 1)
	ema := seed
	for i := period; i < len(periodBars); i++ {
		ema = (periodBars[i].Close-ema)*k + ema
		points = append(points, IndicatorPoint{Date: periodBars[i].Date, Value: ema})
	}
	return points, nil
}
