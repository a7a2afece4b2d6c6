// Package market implements the price store, period conversion, indicator
// computation and caching, and the market-data adapter the simulator reads
// through.
package market

import "time"

// Bar is one day's OHLC summary for one symbol.
type Bar struct {
	Date          time.Time
	Open          float64
	High          float64
	Low           float64
	Close         float64
	AdjustedClose float64
	Volume        float64
}

// Valid reports whether the bar satisfies the OHLC ordering invariant.
func (b Bar) Valid() bool {
	lo := min(b.Open, b.Close)
	hi := max(b.Open, b.Close)
	return b.Low <= lo && lo <= hi && hi <= b.High && b.Volume >= 0
}

// Series is an ordered sequence of bars for one symbol: strictly
// increasing by date, no duplicates. The invariant is enforced at load
// time by Store implementations, never re-checked by downstream readers.
type Series []Bar

// Slice returns the inclusive [start,end] subsequence. A zero start or end
// means unbounded on that side.
func (s Series) Slice(start, end time.Time) Series {
	lo, hi := 0, len(s)
	for lo < len(s) && !start.IsZero() && s[lo].Date.Before(start) {
		lo++
	}
	for hi > lo && !end.IsZero() && s[hi-1].Date.After(end) {
		hi--
	}
	out := make(Series, hi-lo)
	copy(out, s[lo:hi])
	return out
}

// At returns the bar dated exactly d, if present.
func (s Series) At(d time.Time) (Bar, bool) {
	// Bars are few enough per symbol (years of daily data) that a linear
	// scan from the tail is simpler than maintaining a parallel index;
	// callers needing repeated point lookups go through the cache.
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Date.Equal(d) {
			return s[i], true
		}
		if s[i].Date.Before(d) {
			break
		}
	}
	return Bar{}, false
}

// LastOnOrBefore returns the latest bar with Date <= d.
func (s Series) LastOnOrBefore(d time.Time) (Bar, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].Date.After(d) {
			return s[i], true
		}
	}
	return Bar{}, false
}
