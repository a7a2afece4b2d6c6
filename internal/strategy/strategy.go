// Package strategy defines the plug-in contract the simulator calls
// synchronously on every market close, and the order generator that
// turns a strategy's transitions into concrete orders.
package strategy

import (
	"github.com/kestrelquant/backtest/internal/market"
	"github.com/kestrelquant/backtest/internal/position"
)

// PriceFunc returns the bar for symbol scoped to the simulator's current
// date, or ok=false for an unknown symbol or a date with no bar.
type PriceFunc func(symbol string) (market.Bar, bool)

// IndicatorFunc returns a named indicator's value for symbol, scoped to
// the simulator's current date.
type IndicatorFunc func(symbol, name string, period int, cadence market.Cadence) (float64, bool)

// Strategy is the single operation the simulator calls each step: given
// a read-only, date-scoped market view and the current positions, it
// returns the transitions it wants applied. Strategies may not perform
// I/O and must not retain the passed functions past the call.
type Strategy interface {
	OnMarketClose(getPrice PriceFunc, getIndicator IndicatorFunc, positions map[string]position.Position) ([]position.Transition, error)
}
