// Package emacross implements an EMA crossover strategy: it enters long
// when the fast EMA crosses above the slow EMA and exits when it
// crosses back below, driven entirely through the strategy.Strategy
// interface (market.Adapter's Indicator lookups, scoped to the
// simulator's current date).
package emacross

import (
	"github.com/kestrelquant/backtest/internal/market"
	"github.com/kestrelquant/backtest/internal/position"
	"github.com/kestrelquant/backtest/internal/strategy"
)

// Strategy crosses a fast and slow EMA, computed at Cadence, per symbol
// in Symbols.
type Strategy struct {
	Symbols []string
	Fast    int
	Slow    int
	Cadence market.Cadence
	Qty     float64

	// aboveBySymbol remembers whether the fast EMA was above the slow
	// EMA as of the previous call, per symbol, to detect the crossing
	// edge rather than re-triggering every day the fast EMA stays above.
	aboveBySymbol map[string]bool
	entryID       map[string]string
}

// New builds an EMA-crossover strategy with the given fast/slow periods
// at the given cadence, entering/exiting qty shares per symbol.
func New(symbols []string, fast, slow int, cadence market.Cadence, qty float64) *Strategy {
	return &Strategy{
		Symbols:       symbols,
		Fast:          fast,
		Slow:          slow,
		Cadence:       cadence,
		Qty:           qty,
		aboveBySymbol: make(map[string]bool),
		entryID:       make(map[string]string),
	}
}

var _ strategy.Strategy = (*Strategy)(nil)

// OnMarketClose emits a CreateEntering when the fast EMA crosses above
// the slow EMA for a symbol with no open position, and a TriggerExit
// when it crosses back below for a symbol this strategy is holding.
func (s *Strategy) OnMarketClose(getPrice strategy.PriceFunc, getIndicator strategy.IndicatorFunc, positions map[string]position.Position) ([]position.Transition, error) {
	var transitions []position.Transition

	for _, symbol := range s.Symbols {
		fast, fastOK := getIndicator(symbol, "EMA", s.Fast, s.Cadence)
		slow, slowOK := getIndicator(symbol, "EMA", s.Slow, s.Cadence)
		if !fastOK || !slowOK {
			continue
		}
		above := fast > slow
		wasAbove, known := s.aboveBySymbol[symbol]
		s.aboveBySymbol[symbol] = above

		if !known {
			continue // first observation establishes the baseline, no edge yet
		}
		crossedUp := above && !wasAbove
		crossedDown := !above && wasAbove

		posID, holding := s.entryID[symbol]
		var pos position.Position
		if holding {
			var ok bool
			pos, ok = positions[posID]
			// A Closed (or already Exiting) position no longer counts as
			// held: the symbol is free to re-enter on the next cross.
			holding = ok && (pos.State.Kind == position.Entering || pos.State.Kind == position.Holding)
		}

		switch {
		case crossedUp && !holding:
			bar, ok := getPrice(symbol)
			if !ok {
				continue
			}
			transitions = append(transitions, position.Transition{
				Kind:       position.CreateEntering,
				Symbol:     symbol,
				Side:       position.Long,
				TargetQty:  s.Qty,
				EntryPrice: bar.Close,
				Reasoning:  "fast EMA crossed above slow EMA",
			})
		case crossedDown && holding && pos.State.Kind == position.Holding:
			bar, ok := getPrice(symbol)
			if !ok {
				continue
			}
			transitions = append(transitions, position.Transition{
				Kind:       position.TriggerExit,
				PositionID: posID,
				ExitPrice:  bar.Close,
				ExitReason: "fast EMA crossed below slow EMA",
			})
		}
	}

	// Track newly-created positions by symbol so the next call can find
	// them by id; the simulator assigns ids only after CreateEntering is
	// applied, so this strategy re-derives them from the snapshot it's
	// handed next call.
	for id, p := range positions {
		if p.State.Kind == position.Entering || p.State.Kind == position.Holding {
			s.entryID[p.Symbol] = id
		}
	}

	return transitions, nil
}
