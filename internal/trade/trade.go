// Package trade defines the immutable fill record produced by the fill
// engine and consumed by the position machine and portfolio.
package trade

import (
	"time"

	"github.com/google/uuid"

	"github.com/kestrelquant/backtest/internal/fillengine"
)

// Trade is a fill record. Immutable once produced.
type Trade struct {
	ID         string
	OrderID    string
	Symbol     string
	Side       fillengine.Side
	Quantity   float64
	Price      float64
	Commission float64
	Timestamp  time.Time
}

// New builds a Trade with a fresh ID.
func New(orderID, symbol string, side fillengine.Side, quantity, price, commission float64, ts time.Time) Trade {
	return Trade{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		Timestamp:  ts,
	}
}
