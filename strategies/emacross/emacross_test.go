package emacross

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelquant/backtest/internal/market"
	"github.com/kestrelquant/backtest/internal/position"
)

func TestEmaCrossEntersOnUpwardCross(t *testing.T) {
	s := New([]string{"AAPL"}, 5, 20, market.Daily, 10)
	getPrice := func(string) (market.Bar, bool) {
		return market.Bar{Date: time.Now(), Close: 150}, true
	}

	// First call establishes the baseline: fast below slow, no cross yet.
	indicator := func(symbol, name string, period int, cadence market.Cadence) (float64, bool) {
		if period == 5 {
			return 90, true
		}
		return 100, true
	}
	transitions, err := s.OnMarketClose(getPrice, indicator, map[string]position.Position{})
	require.NoError(t, err)
	assert.Empty(t, transitions)

	// Second call: fast now above slow -> crossed up -> enter.
	crossedUp := func(symbol, name string, period int, cadence market.Cadence) (float64, bool) {
		if period == 5 {
			return 110, true
		}
		return 100, true
	}
	transitions, err = s.OnMarketClose(getPrice, crossedUp, map[string]position.Position{})
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, position.CreateEntering, transitions[0].Kind)
}

func TestEmaCrossExitsOnDownwardCross(t *testing.T) {
	s := New([]string{"AAPL"}, 5, 20, market.Daily, 10)
	getPrice := func(string) (market.Bar, bool) { return market.Bar{Date: time.Now(), Close: 150}, true }

	above := func(symbol, name string, period int, cadence market.Cadence) (float64, bool) {
		if period == 5 {
			return 110, true
		}
		return 100, true
	}
	_, err := s.OnMarketClose(getPrice, above, map[string]position.Position{})
	require.NoError(t, err)

	pos, err := position.NewEntering(position.Transition{Symbol: "AAPL", Side: position.Long, TargetQty: 10, EntryPrice: 150, Date: time.Now()})
	require.NoError(t, err)
	pos, err = position.Apply(pos, position.Transition{Kind: position.EntryFill, PositionID: pos.ID, FilledQty: 10, FillPrice: 150, Date: time.Now()})
	require.NoError(t, err)
	pos, err = position.Apply(pos, position.Transition{Kind: position.EntryComplete, PositionID: pos.ID, Date: time.Now()})
	require.NoError(t, err)
	positions := map[string]position.Position{pos.ID: pos}
	s.entryID["AAPL"] = pos.ID

	below := func(symbol, name string, period int, cadence market.Cadence) (float64, bool) {
		if period == 5 {
			return 90, true
		}
		return 100, true
	}
	transitions, err := s.OnMarketClose(getPrice, below, positions)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, position.TriggerExit, transitions[0].Kind)
	assert.Equal(t, pos.ID, transitions[0].PositionID)
}
