// Package fillengine turns one daily OHLC bar into a four-point intraday
// path and decides whether Market/Limit/Stop/StopLimit orders fill
// against it, and at what price.
package fillengine

import (
	"github.com/kestrelquant/backtest/internal/market"
)

// Side mirrors the order side an order book entry carries.
type Side int

const (
	Buy Side = iota
	Sell
)

// OrderType is the closed set of order kinds the fill engine evaluates.
type OrderType struct {
	Kind  Kind
	Price float64 // Limit price, or StopLimit's limit
	Stop  float64 // Stop price, or StopLimit's stop
}

type Kind int

const (
	Market Kind = iota
	Limit
	Stop
	StopLimit
)

// Point is one node of the synthesized intraday path.
type Point struct {
	Fraction float64
	Price    float64
}

// FillResult is the outcome of a successful fill decision.
type FillResult struct {
	Price    float64
	Fraction float64
}

// BuildPath synthesizes the four-point intraday path from one daily bar.
// If close >= open the path visits O@0.0, H@0.33, L@0.66, C@1.0;
// otherwise O, L, H, C. This is the minimum path that touches all four
// OHLC values while respecting the day's net direction.
func BuildPath(bar market.Bar) []Point {
	if bar.Close >= bar.Open {
		return []Point{
			{Fraction: 0.0, Price: bar.Open},
			{Fraction: 0.33, Price: bar.High},
			{Fraction: 0.66, Price: bar.Low},
			{Fraction: 1.0, Price: bar.Close},
		}
	}
	return []Point{
		{Fraction: 0.0, Price: bar.Open},
		{Fraction: 0.33, Price: bar.Low},
		{Fraction: 0.66, Price: bar.High},
		{Fraction: 1.0, Price: bar.Close},
	}
}

// WouldFill evaluates an order type and side against path and returns the
// fill price and fraction of day, or ok=false if it would not fill.
func WouldFill(path []Point, order OrderType, side Side) (FillResult, bool) {
	switch order.Kind {
	case Market:
		return FillResult{Price: path[0].Price, Fraction: path[0].Fraction}, true
	case Limit:
		return limitFill(path, order.Price, side)
	case Stop:
		return stopFill(path, order.Stop, side)
	case StopLimit:
		idx, ok := stopTriggerIndex(path, order.Stop, side)
		if !ok {
			return FillResult{}, false
		}
		return limitFill(path[idx:], order.Price, side)
	default:
		return FillResult{}, false
	}
}

// limitFill scans path for a Limit order: a Buy fills once price crosses
// (or starts) at or below limit; a Sell is symmetric, crossing/starting
// at or above limit.
func limitFill(path []Point, limit float64, side Side) (FillResult, bool) {
	if len(path) == 0 {
		return FillResult{}, false
	}
	favorable := func(p float64) bool {
		if side == Buy {
			return p <= limit
		}
		return p >= limit
	}
	if favorable(path[0].Price) {
		return FillResult{Price: path[0].Price, Fraction: path[0].Fraction}, true
	}
	for i := 1; i < len(path); i++ {
		prev, cur := path[i-1], path[i]
		if crosses(prev.Price, cur.Price, limit) {
			return FillResult{Price: limit, Fraction: cur.Fraction}, true
		}
		if favorable(cur.Price) {
			return FillResult{Price: cur.Price, Fraction: cur.Fraction}, true
		}
	}
	return FillResult{}, false
}

// stopFill scans path for a Stop order: a Buy triggers once price
// reaches or exceeds stop; a Sell triggers at or below stop.
func stopFill(path []Point, stop float64, side Side) (FillResult, bool) {
	idx, ok := stopTriggerIndex(path, stop, side)
	if !ok {
		return FillResult{}, false
	}
	if idx == 0 {
		// Triggered by a gap already past the stop at the open.
		return FillResult{Price: path[0].Price, Fraction: path[0].Fraction}, true
	}
	return FillResult{Price: stop, Fraction: path[idx].Fraction}, true
}

// stopTriggerIndex returns the path index at which the stop first
// triggers (the endpoint of the crossing segment, or 0 if already past
// at the open), and whether it triggers at all.
func stopTriggerIndex(path []Point, stop float64, side Side) (int, bool) {
	triggered := func(p float64) bool {
		if side == Buy {
			return p >= stop
		}
		return p <= stop
	}
	if triggered(path[0].Price) {
		return 0, true
	}
	for i := 1; i < len(path); i++ {
		if triggered(path[i].Price) {
			return i, true
		}
	}
	return 0, false
}

// crosses reports whether the value target lies strictly between prev
// and cur (either direction), i.e. the segment crosses it.
func crosses(prev, cur, target float64) bool {
	if prev == cur {
		return false
	}
	lo, hi := prev, cur
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo < target && target < hi
}
