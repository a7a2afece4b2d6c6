package metric

import (
	"github.com/kestrelquant/backtest/internal/fillengine"
	"github.com/kestrelquant/backtest/internal/trade"
)

// roundTrip is a Buy trade paired with its matching Sell, the glossary's
// definition of a round-trip.
type roundTrip struct {
	Symbol     string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	DaysHeld   int
	PnL        float64
}

// pairRoundTrips pairs consecutive (Buy, Sell) trades per symbol in
// chronological order, FIFO: the earliest unmatched Buy for a symbol is
// closed by the next Sell for that symbol.
func pairRoundTrips(trades []trade.Trade) []roundTrip {
	pendingBuys := make(map[string][]trade.Trade)
	var trips []roundTrip

	for _, t := range trades {
		switch t.Side {
		case fillengine.Buy:
			pendingBuys[t.Symbol] = append(pendingBuys[t.Symbol], t)
		case fillengine.Sell:
			queue := pendingBuys[t.Symbol]
			if len(queue) == 0 {
				continue
			}
			buy := queue[0]
			pendingBuys[t.Symbol] = queue[1:]

			days := int(t.Timestamp.Sub(buy.Timestamp).Hours() / 24)
			qty := buy.Quantity
			if t.Quantity < qty {
				qty = t.Quantity
			}
			trips = append(trips, roundTrip{
				Symbol:     t.Symbol,
				EntryPrice: buy.Price,
				ExitPrice:  t.Price,
				Quantity:   qty,
				DaysHeld:   days,
				PnL:        (t.Price - buy.Price) * qty,
			})
		}
	}
	return trips
}
