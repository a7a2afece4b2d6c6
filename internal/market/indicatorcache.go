package market

import "time"

// IndicatorSpec identifies one indicator request.
type IndicatorSpec struct {
	Name    string
	Period  int
	Cadence Cadence
}

type cacheKey struct {
	symbol string
	spec   IndicatorSpec
	date   time.Time
}

type cacheEntry struct {
	value         float64
	hasValue      bool
	isProvisional bool
}

// Manager is the indicator cache: memoizes values per (symbol, spec,
// date), estimates the lookback window needed to compute a value, and
// tracks which entries are provisional so they can be invalidated once
// their period closes.
type Manager struct {
	store   Store
	entries map[cacheKey]cacheEntry
}

// NewManager builds an indicator Manager reading bars from store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, entries: make(map[cacheKey]cacheEntry)}
}

// lookback estimates the number of calendar days of history needed to
// seed `period` closes at the given cadence.
func lookback(cadence Cadence, period int) int {
	switch cadence {
	case Weekly:
		return 7*period + 50
	case Monthly:
		return 30*period + 100
	default:
		return period + 10
	}
}

// Value returns the indicator's value at date, computing and caching it
// on a miss. The value is provisional iff date is not a period end for
// the indicator's cadence.
func (m *Manager) Value(symbol string, spec IndicatorSpec, date time.Time) (float64, bool, error) {
	key := cacheKey{symbol: symbol, spec: spec, date: date}
	if e, ok := m.entries[key]; ok {
		return e.value, e.hasValue, nil
	}

	computer, err := Dispatch(spec.Name)
	if err != nil {
		return 0, false, err
	}

	start := date.AddDate(0, 0, -lookback(spec.Cadence, spec.Period))
	bars, err := m.store.GetPrices(symbol, start, date)
	if err != nil {
		return 0, false, err
	}

	asOf := time.Time{}
	provisional := !IsPeriodEnd(spec.Cadence, date)
	if provisional {
		asOf = date
	}

	points, err := computer(bars, spec.Period, spec.Cadence, asOf)
	if err != nil {
		return 0, false, err
	}
	if len(points) == 0 {
		m.entries[key] = cacheEntry{hasValue: false, isProvisional: provisional}
		return 0, false, nil
	}

	last := points[len(points)-1]
	m.entries[key] = cacheEntry{value: last.Value, hasValue: true, isProvisional: provisional}
	return last.Value, true, nil
}

// FinalizePeriod evicts every cached entry whose cadence matches, whose
// date is <= endDate, and which is provisional: once a period closes its
// strategies must never see the stale intra-period value again.
func (m *Manager) FinalizePeriod(cadence Cadence, endDate time.Time) {
	for key, e := range m.entries {
		if key.spec.Cadence == cadence && !key.date.After(endDate) && e.isProvisional {
			delete(m.entries, key)
		}
	}
}

// CacheStats returns (total entries, provisional entries).
func (m *Manager) CacheStats() (total, provisional int) {
	total = len(m.entries)
	for _, e := range m.entries {
		if e.isProvisional {
			provisional++
		}
	}
	return total, provisional
}
