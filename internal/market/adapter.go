package market

import "time"

// Adapter is the façade the simulator reads through: a unified
// price/indicator view scoped to a single as-of date, so strategies can
// never see data dated after the simulator's current date. The simulator
// supplies date explicitly on every call; the adapter itself holds no
// notion of "now".
type Adapter struct {
	store   Store
	manager *Manager
}

// NewAdapter builds an Adapter over store, with its own indicator
// Manager reading from the same store.
func NewAdapter(store Store) *Adapter {
	return &Adapter{store: store, manager: NewManager(store)}
}

// Manager exposes the adapter's indicator cache, e.g. for FinalizePeriod
// calls driven by the simulator's period-close bookkeeping.
func (a *Adapter) Manager() *Manager { return a.manager }

// Price returns the bar for symbol dated exactly date, or (Bar{}, false)
// for an unknown symbol or a date with no bar (calendar holiday,
// pre-IPO, post-delisting). It never consults dates after date.
func (a *Adapter) Price(symbol string, date time.Time) (Bar, bool) {
	series, err := a.store.GetPrices(symbol, time.Time{}, date)
	if err != nil {
		return Bar{}, false
	}
	return series.At(date)
}

// Indicator returns the named indicator's value for symbol at period
// and cadence, scoped to date.
func (a *Adapter) Indicator(symbol, name string, period int, cadence Cadence, date time.Time) (float64, bool) {
	spec := IndicatorSpec{Name: name, Period: period, Cadence: cadence}
	v, ok, err := a.manager.Value(symbol, spec, date)
	if err != nil {
		return 0, false
	}
	return v, ok
}
