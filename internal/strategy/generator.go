package strategy

import (
	"time"

	"github.com/kestrelquant/backtest/internal/fillengine"
	"github.com/kestrelquant/backtest/internal/orderbook"
	"github.com/kestrelquant/backtest/internal/position"
	"github.com/kestrelquant/backtest/internal/status"
)

// GenerateOrders is the order generator: it converts the
// transitions a strategy produced (already applied to positions, so
// TriggerExit's target position is in Exiting) into concrete Market
// orders. CreateEntering{Long} emits a Buy; CreateEntering{Short} emits
// a Sell; TriggerExit emits the opposite-side order for the position's
// quantity. Every other transition kind generates no order.
func GenerateOrders(transitions []position.Transition, positions map[string]position.Position, date time.Time) ([]*orderbook.Order, error) {
	var orders []*orderbook.Order
	for _, t := range transitions {
		switch t.Kind {
		case position.CreateEntering:
			side := orderbook.Buy
			if t.Side == position.Short {
				side = orderbook.Sell
			}
			o, err := orderbook.NewOrder(t.Symbol, side, fillengine.OrderType{Kind: fillengine.Market}, t.TargetQty, date)
			if err != nil {
				return nil, err
			}
			orders = append(orders, o)

		case position.TriggerExit:
			pos, ok := positions[t.PositionID]
			if !ok {
				// A TriggerExit for an unknown position id is
				// silently ignored, not surfaced.
				continue
			}
			if pos.State.Kind != position.Exiting {
				return nil, status.New(status.FailedPrecondition, "position %s is not Exiting", t.PositionID)
			}
			side := orderbook.Sell
			if pos.Side == position.Short {
				side = orderbook.Buy
			}
			o, err := orderbook.NewOrder(pos.Symbol, side, fillengine.OrderType{Kind: fillengine.Market}, pos.State.TargetQty, date)
			if err != nil {
				return nil, err
			}
			orders = append(orders, o)
		}
	}
	return orders, nil
}
