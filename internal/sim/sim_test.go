package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelquant/backtest/internal/config"
	"github.com/kestrelquant/backtest/internal/market"
	"github.com/kestrelquant/backtest/internal/metric"
	"github.com/kestrelquant/backtest/internal/position"
	"github.com/kestrelquant/backtest/internal/strategy"
	"github.com/kestrelquant/backtest/strategies/emacross"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeStore struct {
	bars map[string]market.Series
}

func (f *fakeStore) Secondary() market.Store { return nil }
func (f *fakeStore) GetPrices(symbol string, start, end time.Time) (market.Series, error) {
	return f.bars[symbol].Slice(start, end), nil
}
func (f *fakeStore) Preload(symbols []string) error { return nil }
func (f *fakeStore) Clear()                         {}

func flatBar(d time.Time, price float64) market.Bar {
	return market.Bar{Date: d, Open: price, High: price, Low: price, Close: price, AdjustedClose: price, Volume: 100}
}

// buyAndHoldOnce emits a single CreateEntering on its first call, then
// nothing.
type buyAndHoldOnce struct {
	calls int
}

func (s *buyAndHoldOnce) OnMarketClose(getPrice strategy.PriceFunc, getIndicator strategy.IndicatorFunc, positions map[string]position.Position) ([]position.Transition, error) {
	s.calls++
	if s.calls != 1 {
		return nil, nil
	}
	bar, _ := getPrice("AAPL")
	return []position.Transition{{
		Kind:       position.CreateEntering,
		Symbol:     "AAPL",
		Side:       position.Long,
		TargetQty:  10,
		EntryPrice: bar.Close,
		Reasoning:  "test entry",
	}}, nil
}

func buildSim(t *testing.T, strat *buyAndHoldOnce) *Simulator {
	t.Helper()
	bars := market.Series{
		flatBar(date("2024-01-02"), 150),
		flatBar(date("2024-01-03"), 154),
		flatBar(date("2024-01-04"), 157),
	}
	store := &fakeStore{bars: map[string]market.Series{"AAPL": bars}}
	adapter := market.NewAdapter(store)
	cfg := &config.Config{
		Watchlist:    []string{"AAPL"},
		InitialCash:  10000,
		Commission:   config.Commission{PerShare: 0.1, Min: 1.00},
		RiskFreeRate: 0,
		Start:        date("2024-01-02"),
		End:          date("2024-01-04"),
	}
	return New(adapter, strat, cfg, metric.Defaults())
}

// TestBuyAndHoldFillsNextDay checks that an order placed on d1 executes
// on d2 at d2's open, not d1's.
func TestBuyAndHoldFillsNextDay(t *testing.T) {
	strat := &buyAndHoldOnce{}
	s := buildSim(t, strat)

	step1, ok, err := s.Step()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, step1.Trades, "no fill on the day the order was placed")

	step2, ok, err := s.Step()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, step2.Trades, 1)
	tr := step2.Trades[0]
	assert.Equal(t, 10.0, tr.Quantity)
	assert.Equal(t, 154.0, tr.Price)
	assert.InDelta(t, 1.00, tr.Commission, 1e-9)
	assert.InDelta(t, 8459.0, step2.Cash, 1e-9)

	var pos position.Position
	for _, p := range s.Positions() {
		pos = p
	}
	assert.Equal(t, position.Holding, pos.State.Kind)
}

func TestRunFoldsMetricsOverSteps(t *testing.T) {
	strat := &buyAndHoldOnce{}
	s := buildSim(t, strat)
	res, err := s.Run()
	require.NoError(t, err)
	assert.Len(t, res.Steps, 3)
	assert.NotEmpty(t, res.Metrics)
}

// TestTriggerExitOnUnknownPositionIsIgnored checks that a TriggerExit
// referencing a position id absent from the map produces no error and
// no order.
type exitUnknown struct{ called bool }

func (s *exitUnknown) OnMarketClose(getPrice strategy.PriceFunc, getIndicator strategy.IndicatorFunc, positions map[string]position.Position) ([]position.Transition, error) {
	if s.called {
		return nil, nil
	}
	s.called = true
	return []position.Transition{{Kind: position.TriggerExit, PositionID: "does-not-exist", ExitPrice: 1, ExitReason: "test"}}, nil
}

func TestTriggerExitOnUnknownPositionIsIgnored(t *testing.T) {
	s := buildSim(t, &buyAndHoldOnce{calls: 1}) // prevent entry side-effects
	s.strat = &exitUnknown{}
	step, ok, err := s.Step()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, step.OrdersSubmitted)
}

// TestEndToEndEmaCrossOnSyntheticData runs the whole stack: seeded
// random-walk bars through the adapter, EMA indicator lookups, crossover
// transitions, next-day fills, and the metric fold.
func TestEndToEndEmaCrossOnSyntheticData(t *testing.T) {
	store := market.NewSyntheticStore(42, nil)
	adapter := market.NewAdapter(store)
	cfg := &config.Config{
		Watchlist:    []string{"AAPL", "MSFT"},
		InitialCash:  100000,
		Commission:   config.Commission{PerShare: 0.005, Min: 1.00},
		RiskFreeRate: 0.02,
		Start:        date("2024-01-02"),
		End:          date("2024-06-28"),
	}
	strat := emacross.New(cfg.Watchlist, 5, 20, market.Daily, 10)
	s := New(adapter, strat, cfg, metric.Defaults())

	res, err := s.Run()
	require.NoError(t, err)

	wantSteps := int(cfg.End.Sub(cfg.Start).Hours()/24) + 1
	assert.Len(t, res.Steps, wantSteps)

	names := make(map[string]bool)
	for _, m := range res.Metrics {
		names[m.Name] = true
	}
	assert.True(t, names["SharpeRatio"])
	assert.True(t, names["MaxDrawdown"])

	// Every fill must have happened strictly after the step that
	// submitted its order.
	submitted := make(map[string]time.Time)
	for _, step := range res.Steps {
		for _, o := range step.OrdersSubmitted {
			submitted[o.ID] = step.Date
		}
		for _, tr := range step.Trades {
			sub, ok := submitted[tr.OrderID]
			require.True(t, ok, "trade references an unknown order")
			assert.True(t, tr.Timestamp.After(sub), "fill on %s must postdate submission on %s", tr.Timestamp, sub)
		}
	}
}
