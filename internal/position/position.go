// Package position implements the position state machine:
// Entering -> Holding -> Exiting -> Closed, with transitions validated
// by explicit guards and multi-reason errors concatenated with "; ".
package position

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelquant/backtest/internal/status"
)

// Side is the position's directional bias: Long or Short.
type Side int

const (
	Long Side = iota
	Short
)

// Kind tags which variant State currently holds. Pattern-match
// exhaustively on Kind; new variants are added here, not by subclassing.
type Kind int

const (
	Entering Kind = iota
	Holding
	Exiting
	Closed
)

// RiskParams are the optional protective parameters a Holding position
// carries. Entry fills set them to all-None; placing protective orders
// from them is a documented future extension, not required here.
type RiskParams struct {
	StopLoss    *float64
	TakeProfit  *float64
	MaxHoldDays *int
}

// State is the tagged union of the four lifecycle states. Fields are
// shared across variants where they mean the same thing (Qty, EntryPrice,
// EntryDate); callers interpret fields per Kind.
type State struct {
	Kind Kind

	// Entering
	TargetQty   float64
	FilledQty   float64
	CreatedDate time.Time

	// shared Entering/Holding/Exiting/Closed
	EntryPrice float64
	EntryDate  time.Time

	// Holding
	Qty        float64
	RiskParams RiskParams

	// Exiting
	ExitPrice   float64
	StartedDate time.Time

	// Closed
	GrossPnl   *float64
	ExitDate   time.Time
	DaysHeld   int
}

// Position is the central entity: an identity plus its current State.
type Position struct {
	ID             string
	Symbol         string
	Side           Side
	EntryReasoning string
	ExitReason     string
	State          State
	LastUpdated    time.Time
}

// TransitionKind tags which transition is being applied.
type TransitionKind int

const (
	CreateEntering TransitionKind = iota
	EntryFill
	EntryComplete
	CancelEntry
	TriggerExit
	UpdateRiskParams
	ExitFill
	ExitComplete
)

// Transition is the tagged request record driving the state machine.
type Transition struct {
	Kind TransitionKind

	// CreateEntering
	Symbol     string
	Side       Side
	TargetQty  float64
	EntryPrice float64
	Reasoning  string

	// targets an existing position for every kind but CreateEntering
	PositionID string

	// EntryFill / ExitFill
	FilledQty float64
	FillPrice float64

	// CancelEntry
	CancelReason string

	// TriggerExit
	ExitReason string
	ExitPrice  float64

	// UpdateRiskParams
	NewRiskParams RiskParams

	Date time.Time
}

// NewEntering is the CreateEntering constructor: it has no prior position
// to validate against, so its guard runs standalone.
func NewEntering(t Transition) (Position, error) {
	var reasons []string
	if t.TargetQty <= 0 {
		reasons = append(reasons, "target_qty must be positive")
	}
	if t.EntryPrice <= 0 {
		reasons = append(reasons, "entry_price must be positive")
	}
	if len(reasons) > 0 {
		return Position{}, status.New(status.InvalidArgument, "%s", strings.Join(reasons, "; "))
	}

	return Position{
		ID:             uuid.NewString(),
		Symbol:         t.Symbol,
		Side:           t.Side,
		EntryReasoning: t.Reasoning,
		State: State{
			Kind:        Entering,
			TargetQty:   t.TargetQty,
			EntryPrice:  t.EntryPrice,
			CreatedDate: t.Date,
		},
		LastUpdated: t.Date,
	}, nil
}

// Apply validates transition against p's current state and guards, and
// returns the resulting Position. All validation failures for a single
// apply are reported together, concatenated with "; ", rather than
// short-circuited on the first failure.
func Apply(p Position, t Transition) (Position, error) {
	if t.PositionID != p.ID {
		return Position{}, status.New(status.InvalidArgument, "ID mismatch")
	}
	if p.State.Kind == Closed {
		return Position{}, status.New(status.InvalidArgument, "closed position")
	}

	switch {
	case p.State.Kind == Entering && t.Kind == EntryFill:
		return applyEntryFill(p, t)
	case p.State.Kind == Entering && t.Kind == EntryComplete:
		return applyEntryComplete(p, t)
	case p.State.Kind == Entering && t.Kind == CancelEntry:
		return applyCancelEntry(p, t)
	case p.State.Kind == Holding && t.Kind == UpdateRiskParams:
		return applyUpdateRiskParams(p, t)
	case p.State.Kind == Holding && t.Kind == TriggerExit:
		return applyTriggerExit(p, t)
	case p.State.Kind == Exiting && t.Kind == ExitFill:
		return applyExitFill(p, t)
	case p.State.Kind == Exiting && t.Kind == ExitComplete:
		return applyExitComplete(p, t)
	default:
		return Position{}, status.New(status.InvalidArgument, "transition not legal from current state")
	}
}

func applyEntryFill(p Position, t Transition) (Position, error) {
	var reasons []string
	if t.FillPrice <= 0 {
		reasons = append(reasons, "fill_price must be positive")
	}
	if p.State.FilledQty+t.FilledQty > p.State.TargetQty {
		reasons = append(reasons, "filled quantity exceeds target")
	}
	if len(reasons) > 0 {
		return Position{}, status.New(status.InvalidArgument, "%s", strings.Join(reasons, "; "))
	}

	next := p
	next.State.FilledQty += t.FilledQty
	// A weighted-average fill price across partial fills.
	if next.State.FilledQty > 0 {
		next.State.EntryPrice = ((p.State.EntryPrice * p.State.FilledQty) + (t.FillPrice * t.FilledQty)) / next.State.FilledQty
	}
	next.LastUpdated = t.Date
	return next, nil
}

func applyEntryComplete(p Position, t Transition) (Position, error) {
	if p.State.FilledQty <= 0 {
		return Position{}, status.New(status.InvalidArgument, "filled quantity must be positive to complete entry")
	}
	next := p
	next.State = State{
		Kind:       Holding,
		Qty:        p.State.FilledQty,
		EntryPrice: p.State.EntryPrice,
		EntryDate:  p.State.CreatedDate,
		RiskParams: RiskParams{},
	}
	next.LastUpdated = t.Date
	return next, nil
}

func applyCancelEntry(p Position, t Transition) (Position, error) {
	if p.State.FilledQty != 0 {
		return Position{}, status.New(status.InvalidArgument, "cannot cancel entry after a fill")
	}
	next := p
	next.State = State{
		Kind:       Closed,
		EntryPrice: p.State.EntryPrice,
		EntryDate:  p.State.CreatedDate,
		ExitDate:   t.Date,
	}
	next.ExitReason = t.CancelReason
	next.LastUpdated = t.Date
	return next, nil
}

func applyUpdateRiskParams(p Position, t Transition) (Position, error) {
	next := p
	next.State.RiskParams = t.NewRiskParams
	next.LastUpdated = t.Date
	return next, nil
}

func applyTriggerExit(p Position, t Transition) (Position, error) {
	if t.ExitPrice <= 0 {
		return Position{}, status.New(status.InvalidArgument, "exit_price must be positive")
	}
	next := p
	next.State = State{
		Kind:        Exiting,
		Qty:         p.State.Qty,
		TargetQty:   p.State.Qty,
		EntryPrice:  p.State.EntryPrice,
		EntryDate:   p.State.EntryDate,
		ExitPrice:   t.ExitPrice,
		StartedDate: t.Date,
	}
	next.ExitReason = t.ExitReason
	next.LastUpdated = t.Date
	return next, nil
}

func applyExitFill(p Position, t Transition) (Position, error) {
	if p.State.FilledQty+t.FilledQty > p.State.TargetQty {
		return Position{}, status.New(status.InvalidArgument, "filled quantity exceeds target")
	}
	next := p
	next.State.FilledQty += t.FilledQty
	if next.State.FilledQty > 0 {
		next.State.ExitPrice = ((p.State.ExitPrice * p.State.FilledQty) + (t.FillPrice * t.FilledQty)) / next.State.FilledQty
	}
	next.LastUpdated = t.Date
	return next, nil
}

func applyExitComplete(p Position, t Transition) (Position, error) {
	next := p
	daysHeld := int(t.Date.Sub(p.State.EntryDate).Hours() / 24)
	pnl := (p.State.ExitPrice - p.State.EntryPrice) * p.State.Qty
	if p.Side == Short {
		pnl = (p.State.EntryPrice - p.State.ExitPrice) * p.State.Qty
	}
	next.State = State{
		Kind:       Closed,
		Qty:        p.State.Qty,
		EntryPrice: p.State.EntryPrice,
		EntryDate:  p.State.EntryDate,
		ExitPrice:  p.State.ExitPrice,
		ExitDate:   t.Date,
		DaysHeld:   daysHeld,
		GrossPnl:   &pnl,
	}
	next.LastUpdated = t.Date
	return next, nil
}
