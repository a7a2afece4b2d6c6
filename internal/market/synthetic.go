package market

import (
	"math"
	"math/rand"
	"time"
)

// SyntheticStore generates random-walk daily bars, skipping weekends.
// The walk for a symbol is anchored at a fixed epoch and derived only
// from the store's seed, so any two requests see consistent bars no
// matter what ranges they ask for, and two stores built with the same
// seed generate identical series. Useful for tests and for trying a
// strategy without any data files on disk.
type SyntheticStore struct {
	seed      int64
	secondary Store
	cache     map[string]Series
}

// The walk starts here regardless of the requested range; requests
// before the epoch see no bars.
var syntheticEpoch = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// NewSyntheticStore builds a SyntheticStore with the given seed.
func NewSyntheticStore(seed int64, secondary Store) *SyntheticStore {
	return &SyntheticStore{seed: seed, secondary: secondary, cache: make(map[string]Series)}
}

func (s *SyntheticStore) Secondary() Store { return s.secondary }

// GetPrices returns bars for symbol over [start,end], extending the
// cached walk when the request reaches past it. A zero end yields no
// new bars beyond what is already cached.
func (s *SyntheticStore) GetPrices(symbol string, start, end time.Time) (Series, error) {
	series := s.cache[symbol]
	if !end.IsZero() && (len(series) == 0 || series[len(series)-1].Date.Before(end)) {
		series = s.generate(symbol, end)
		s.cache[symbol] = series
	}
	return series.Slice(start, end), nil
}

// generate walks from the epoch through end. The rng is re-seeded from
// scratch every time, so a longer walk shares its prefix with every
// shorter one.
func (s *SyntheticStore) generate(symbol string, end time.Time) Series {
	// Per-symbol seed so different symbols walk independently while the
	// store as a whole stays reproducible.
	symSeed := s.seed
	for _, r := range symbol {
		symSeed = symSeed*31 + int64(r)
	}
	rng := rand.New(rand.NewSource(symSeed))

	cur := syntheticEpoch
	price := 100.0 + float64(rng.Intn(200))
	var out Series
	for !cur.After(end) {
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			delta := rng.NormFloat64() * 0.01 * price
			open := price
			close := price + delta
			high := math.Max(open, close) + math.Abs(rng.NormFloat64()*0.3)
			low := math.Min(open, close) - math.Abs(rng.NormFloat64()*0.3)
			out = append(out, Bar{
				Date:          cur,
				Open:          open,
				High:          high,
				Low:           low,
				Close:         close,
				AdjustedClose: close,
				Volume:        float64(1000 + rng.Intn(5000)),
			})
			price = close
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}

func (s *SyntheticStore) Preload(symbols []string) error { return nil }

func (s *SyntheticStore) Clear() {
	s.cache = make(map[string]Series)
}
