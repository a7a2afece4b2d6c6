package fillengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelquant/backtest/internal/market"
)

func bar(o, h, l, c float64) market.Bar {
	return market.Bar{Date: time.Now(), Open: o, High: h, Low: l, Close: c, Volume: 1}
}

func TestBuildPathUpDay(t *testing.T) {
	path := BuildPath(bar(100, 110, 95, 105))
	assert.Equal(t, []Point{
		{Fraction: 0.0, Price: 100},
		{Fraction: 0.33, Price: 110},
		{Fraction: 0.66, Price: 95},
		{Fraction: 1.0, Price: 105},
	}, path)
}

func TestBuildPathDownDay(t *testing.T) {
	path := BuildPath(bar(105, 110, 95, 100))
	assert.Equal(t, []Point{
		{Fraction: 0.0, Price: 105},
		{Fraction: 0.33, Price: 95},
		{Fraction: 0.66, Price: 110},
		{Fraction: 1.0, Price: 100},
	}, path)
}

func TestMarketFillsAtOpen(t *testing.T) {
	path := BuildPath(bar(150, 160, 149, 154))
	res, ok := WouldFill(path, OrderType{Kind: Market}, Buy)
	assert.True(t, ok)
	assert.Equal(t, 150.0, res.Price)
	assert.Equal(t, 0.0, res.Fraction)
}

func TestLimitBuyNeverTriggers(t *testing.T) {
	path := BuildPath(bar(100, 110, 95, 105))
	_, ok := WouldFill(path, OrderType{Kind: Limit, Price: 90}, Buy)
	assert.False(t, ok)
}

func TestLimitBuyFillsWhenPriceDips(t *testing.T) {
	path := BuildPath(bar(100, 110, 95, 105))
	res, ok := WouldFill(path, OrderType{Kind: Limit, Price: 96}, Buy)
	assert.True(t, ok)
	assert.Equal(t, 96.0, res.Price)
}

func TestLimitBuyFillsImmediatelyWhenAlreadyBelow(t *testing.T) {
	path := BuildPath(bar(90, 95, 85, 92))
	res, ok := WouldFill(path, OrderType{Kind: Limit, Price: 96}, Buy)
	assert.True(t, ok)
	assert.Equal(t, 90.0, res.Price)
	assert.Equal(t, 0.0, res.Fraction)
}

func TestStopLimitGapNoTrigger(t *testing.T) {
	path := BuildPath(bar(100, 115, 99, 112))
	_, ok := WouldFill(path, OrderType{Kind: StopLimit, Stop: 98, Price: 97}, Sell)
	assert.False(t, ok)
}

func TestStopSellTriggersMidSegmentAtStop(t *testing.T) {
	path := BuildPath(bar(100, 105, 90, 95)) // down day: O,L,H,C = 100,90,105,95
	res, ok := WouldFill(path, OrderType{Kind: Stop, Stop: 95}, Sell)
	assert.True(t, ok)
	assert.Equal(t, 95.0, res.Price)
}

func TestStopBuyTriggeredByGapAtOpen(t *testing.T) {
	path := BuildPath(bar(120, 125, 118, 122))
	res, ok := WouldFill(path, OrderType{Kind: Stop, Stop: 110}, Buy)
	assert.True(t, ok)
	assert.Equal(t, 120.0, res.Price)
	assert.Equal(t, 0.0, res.Fraction)
}

func TestPathInvariants(t *testing.T) {
	b := bar(100, 110, 95, 105)
	path := BuildPath(b)
	assert.Equal(t, 0.0, path[0].Fraction)
	assert.Equal(t, 1.0, path[len(path)-1].Fraction)
	var sawHigh, sawLow bool
	for _, p := range path {
		if p.Price == b.High {
			sawHigh = true
		}
		if p.Price == b.Low {
			sawLow = true
		}
	}
	assert.True(t, sawHigh)
	assert.True(t, sawLow)
}
