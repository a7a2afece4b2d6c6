// Package orderbook holds submitted orders and transitions them to
// Filled as the simulator matches them against intraday price paths.
package orderbook

import (
	"time"

	"github.com/google/uuid"

	"github.com/kestrelquant/backtest/internal/fillengine"
	"github.com/kestrelquant/backtest/internal/status"
)

type Side = fillengine.Side

const (
	Buy  = fillengine.Buy
	Sell = fillengine.Sell
)

type Status int

const (
	Active Status = iota
	Filled
	Cancelled
)

// Order is one submitted order: Market/Limit/Stop/StopLimit on one
// symbol, tracked to fill.
type Order struct {
	ID            string
	Symbol        string
	Side          Side
	Type          fillengine.OrderType
	Quantity      float64
	TimeInForce   string
	Status        Status
	FilledQty     float64
	AvgFillPrice  float64
	SubmittedDate time.Time
}

// Filter selects which orders List returns.
type Filter int

const (
	ActiveOnly Filter = iota
	All
)

// Book is the order book: a single-threaded map of submitted orders.
type Book struct {
	orders []*Order
	byID   map[string]*Order
}

// NewBook returns an empty order book.
func NewBook() *Book {
	return &Book{byID: make(map[string]*Order)}
}

// NewOrder constructs an order in the Active state with a fresh ID.
func NewOrder(symbol string, side Side, orderType fillengine.OrderType, quantity float64, submitted time.Time) (*Order, error) {
	if quantity <= 0 {
		return nil, status.New(status.InvalidArgument, "quantity must be positive, got %v", quantity)
	}
	return &Order{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		Side:          side,
		Type:          orderType,
		Quantity:      quantity,
		TimeInForce:   "day",
		Status:        Active,
		SubmittedDate: submitted,
	}, nil
}

// Submit appends all the given orders, returning one status (always Ok
// in current semantics; validation happens at construction) per order.
func (b *Book) Submit(orders ...*Order) []error {
	results := make([]error, len(orders))
	for i, o := range orders {
		b.orders = append(b.orders, o)
		b.byID[o.ID] = o
		results[i] = nil
	}
	return results
}

// List returns orders matching filter, in submission order.
func (b *Book) List(filter Filter) []*Order {
	if filter == All {
		out := make([]*Order, len(b.orders))
		copy(out, b.orders)
		return out
	}
	var out []*Order
	for _, o := range b.orders {
		if o.Status == Active {
			out = append(out, o)
		}
	}
	return out
}

// Update replaces the stored order with the same ID, e.g. after a fill.
func (b *Book) Update(o *Order) error {
	if _, ok := b.byID[o.ID]; !ok {
		return status.New(status.NotFound, "no order with id %s", o.ID)
	}
	b.byID[o.ID] = o
	for i, existing := range b.orders {
		if existing.ID == o.ID {
			b.orders[i] = o
		}
	}
	return nil
}

// MarkFilled flips status to Filled and records the fill.
func (o *Order) MarkFilled(price float64) {
	o.Status = Filled
	o.FilledQty = o.Quantity
	o.AvgFillPrice = price
}
