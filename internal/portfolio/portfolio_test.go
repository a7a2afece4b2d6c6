package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelquant/backtest/internal/fillengine"
	"github.com/kestrelquant/backtest/internal/trade"
)

func TestApplyTradesBuyAndSell(t *testing.T) {
	p := New(10000)
	buy := trade.New("o1", "AAPL", fillengine.Buy, 10, 154, 1.0, time.Now())
	require.NoError(t, p.ApplyTrades([]trade.Trade{buy}))
	assert.InDelta(t, 10000-10*154-1, p.Cash, 1e-9)
	assert.Equal(t, 10.0, p.Quantity("AAPL"))

	sell := trade.New("o2", "AAPL", fillengine.Sell, 10, 160, 1.0, time.Now())
	require.NoError(t, p.ApplyTrades([]trade.Trade{sell}))
	assert.Equal(t, 0.0, p.Quantity("AAPL"))
}

func TestApplyTradesAllowsNegativeCash(t *testing.T) {
	p := New(100)
	buy := trade.New("o1", "AAPL", fillengine.Buy, 10, 154, 1.0, time.Now())
	require.NoError(t, p.ApplyTrades([]trade.Trade{buy}))
	assert.Less(t, p.Cash, 0.0)
}

func TestDeductFIFO(t *testing.T) {
	p := New(100000)
	require.NoError(t, p.ApplyTrades([]trade.Trade{
		trade.New("o1", "AAPL", fillengine.Buy, 10, 100, 0, time.Now()),
		trade.New("o2", "AAPL", fillengine.Buy, 5, 110, 0, time.Now()),
	}))
	require.NoError(t, p.ApplyTrades([]trade.Trade{
		trade.New("o3", "AAPL", fillengine.Sell, 12, 120, 0, time.Now()),
	}))
	assert.Equal(t, 3.0, p.Quantity("AAPL"))
	assert.Equal(t, 110.0, p.Lots["AAPL"][0].Price)
}

func TestRoundTripNetQuantity(t *testing.T) {
	p := New(100000)
	trades := []trade.Trade{
		trade.New("o1", "AAPL", fillengine.Buy, 10, 100, 0, time.Now()),
		trade.New("o2", "AAPL", fillengine.Sell, 4, 110, 0, time.Now()),
	}
	require.NoError(t, p.ApplyTrades(trades))
	assert.Equal(t, 6.0, p.Quantity("AAPL"))
}

func TestValueMarksToCloseAndSkipsMissingPrice(t *testing.T) {
	lots := map[string][]Lot{
		"AAPL": {{ID: "1", Symbol: "AAPL", Quantity: 10, Price: 100}},
		"MSFT": {{ID: "2", Symbol: "MSFT", Quantity: 5, Price: 200}},
	}
	v, err := Value(lots, 1000, map[string]float64{"AAPL": 150})
	require.NoError(t, err)
	assert.Equal(t, 1000+10*150.0, v)
}
