// Package portfolio tracks cash and per-symbol FIFO lots, and marks
// positions to market.
package portfolio

import (
	"math"

	"github.com/google/uuid"

	"github.com/kestrelquant/backtest/internal/fillengine"
	"github.com/kestrelquant/backtest/internal/status"
	"github.com/kestrelquant/backtest/internal/trade"
)

// Lot is one FIFO entry bought into a symbol's position.
type Lot struct {
	ID       string
	Symbol   string
	Quantity float64
	Price    float64
}

// Portfolio holds cash and per-symbol lot stacks.
type Portfolio struct {
	InitialCash float64
	Cash        float64
	Lots        map[string][]Lot // symbol -> FIFO lot stack
}

// New returns a Portfolio seeded with initialCash.
func New(initialCash float64) *Portfolio {
	return &Portfolio{InitialCash: initialCash, Cash: initialCash, Lots: make(map[string][]Lot)}
}

// ApplyTrades updates cash and lots for each trade in order: a Buy
// reduces cash by qty*price + commission and appends a lot; a Sell
// increases cash by qty*price - commission and deducts from the FIFO
// lot stack.
func (p *Portfolio) ApplyTrades(trades []trade.Trade) error {
	for _, t := range trades {
		switch t.Side {
		case fillengine.Buy:
			cost := t.Quantity*t.Price + t.Commission
			if math.IsNaN(cost) || math.IsInf(cost, 0) {
				return status.New(status.Internal, "numeric overflow applying buy trade %s", t.ID)
			}
			// Cash is allowed to go negative on an overdrawing buy; the
			// fill is not rejected for insufficient funds.
			p.Cash -= cost
			p.Lots[t.Symbol] = append(p.Lots[t.Symbol], Lot{ID: uuid.NewString(), Symbol: t.Symbol, Quantity: t.Quantity, Price: t.Price})
		case fillengine.Sell:
			proceeds := t.Quantity*t.Price - t.Commission
			if math.IsNaN(proceeds) || math.IsInf(proceeds, 0) {
				return status.New(status.Internal, "numeric overflow applying sell trade %s", t.ID)
			}
			p.Cash += proceeds
			p.deductFIFO(t.Symbol, t.Quantity)
		}
	}
	if math.IsNaN(p.Cash) {
		return status.New(status.Internal, "cash became NaN")
	}
	return nil
}

func (p *Portfolio) deductFIFO(symbol string, qty float64) {
	lots := p.Lots[symbol]
	remaining := qty
	i := 0
	for i < len(lots) && remaining > 0 {
		if lots[i].Quantity <= remaining {
			remaining -= lots[i].Quantity
			i++
			continue
		}
		lots[i].Quantity -= remaining
		remaining = 0
	}
	p.Lots[symbol] = lots[i:]
}

// Quantity returns the net quantity currently held in symbol's lot stack.
func (p *Portfolio) Quantity(symbol string) float64 {
	var total float64
	for _, l := range p.Lots[symbol] {
		total += l.Quantity
	}
	return total
}

// Value sums cash plus the mark-to-close value of every symbol with
// lots, using priceBySymbol. A symbol with no supplied price
// contributes zero.
func Value(lots map[string][]Lot, cash float64, priceBySymbol map[string]float64) (float64, error) {
	total := cash
	for symbol, symLots := range lots {
		price, ok := priceBySymbol[symbol]
		if !ok {
			continue
		}
		var qty float64
		for _, l := range symLots {
			qty += l.Quantity
		}
		contribution := qty * price
		if math.IsNaN(contribution) || math.IsInf(contribution, 0) {
			return 0, status.New(status.Internal, "numeric overflow valuing symbol %s", symbol)
		}
		total += contribution
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, status.New(status.Internal, "numeric overflow computing portfolio value")
	}
	return total, nil
}
