package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelquant/backtest/internal/orderbook"
	"github.com/kestrelquant/backtest/internal/position"
)

func TestGenerateOrdersCreateEntering(t *testing.T) {
	transitions := []position.Transition{
		{Kind: position.CreateEntering, Symbol: "AAPL", Side: position.Long, TargetQty: 10, EntryPrice: 150},
		{Kind: position.CreateEntering, Symbol: "TSLA", Side: position.Short, TargetQty: 5, EntryPrice: 200},
	}
	orders, err := GenerateOrders(transitions, nil, time.Now())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, orderbook.Buy, orders[0].Side)
	assert.Equal(t, 10.0, orders[0].Quantity)
	assert.Equal(t, orderbook.Sell, orders[1].Side)
	assert.Equal(t, 5.0, orders[1].Quantity)
}

func TestGenerateOrdersTriggerExit(t *testing.T) {
	pos, err := position.NewEntering(position.Transition{Symbol: "AAPL", Side: position.Long, TargetQty: 10, EntryPrice: 150, Date: time.Now()})
	require.NoError(t, err)
	pos, err = position.Apply(pos, position.Transition{Kind: position.EntryFill, PositionID: pos.ID, FilledQty: 10, FillPrice: 150, Date: time.Now()})
	require.NoError(t, err)
	pos, err = position.Apply(pos, position.Transition{Kind: position.EntryComplete, PositionID: pos.ID, Date: time.Now()})
	require.NoError(t, err)
	pos, err = position.Apply(pos, position.Transition{Kind: position.TriggerExit, PositionID: pos.ID, ExitPrice: 160, ExitReason: "signal", Date: time.Now()})
	require.NoError(t, err)

	positions := map[string]position.Position{pos.ID: pos}
	transitions := []position.Transition{{Kind: position.TriggerExit, PositionID: pos.ID, ExitPrice: 160}}

	orders, err := GenerateOrders(transitions, positions, time.Now())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, orderbook.Sell, orders[0].Side)
	assert.Equal(t, 10.0, orders[0].Quantity)
}

func TestGenerateOrdersUnknownPositionIgnored(t *testing.T) {
	transitions := []position.Transition{{Kind: position.TriggerExit, PositionID: "missing"}}
	orders, err := GenerateOrders(transitions, map[string]position.Position{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, orders)
}
