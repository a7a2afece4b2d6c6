// Package buyhold implements the simplest example strategy: buy a fixed
// quantity of every watchlist symbol the first time a price is seen for
// it, and never exit. It consumes only the strategy.Strategy interface
// and performs no I/O.
package buyhold

import (
	"github.com/kestrelquant/backtest/internal/position"
	"github.com/kestrelquant/backtest/internal/strategy"
)

// Strategy buys Qty shares of each symbol in Symbols exactly once.
type Strategy struct {
	Symbols []string
	Qty     float64

	opened map[string]bool
}

// New builds a buy-and-hold strategy over symbols, each entered with a
// qty-share position the first day a price is available for it.
func New(symbols []string, qty float64) *Strategy {
	return &Strategy{Symbols: symbols, Qty: qty, opened: make(map[string]bool)}
}

var _ strategy.Strategy = (*Strategy)(nil)

// OnMarketClose enters every not-yet-opened symbol once a price for it
// is available. It never emits an exit: the position is held for the
// remainder of the run.
func (s *Strategy) OnMarketClose(getPrice strategy.PriceFunc, getIndicator strategy.IndicatorFunc, positions map[string]position.Position) ([]position.Transition, error) {
	held := make(map[string]bool, len(positions))
	for _, p := range positions {
		held[p.Symbol] = true
	}

	var transitions []position.Transition
	for _, symbol := range s.Symbols {
		if s.opened[symbol] || held[symbol] {
			continue
		}
		bar, ok := getPrice(symbol)
		if !ok {
			continue
		}
		s.opened[symbol] = true
		transitions = append(transitions, position.Transition{
			Kind:       position.CreateEntering,
			Symbol:     symbol,
			Side:       position.Long,
			TargetQty:  s.Qty,
			EntryPrice: bar.Close,
			Reasoning:  "buy-and-hold initial entry",
		})
	}
	return transitions, nil
}
