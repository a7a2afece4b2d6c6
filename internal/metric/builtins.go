package metric

import (
	"math"

	"github.com/kestrelquant/backtest/internal/result"
	"github.com/kestrelquant/backtest/internal/trade"
)

// Summary extracts round-trip trades per symbol, computes per-trade
// P&L and days held, then aggregates total P&L, average holding days,
// win/loss counts, and win rate. Emits nothing when there are no
// round-trips. Its update is associative-left: appending trades in
// order and pairing once at finalize gives the same result as folding
// over any left-to-right split of the step list.
func Summary() Computer {
	return New(
		"Summary",
		func(Config) []trade.Trade { return nil },
		func(acc []trade.Trade, step result.StepResult) []trade.Trade {
			return append(acc, step.Trades...)
		},
		func(acc []trade.Trade, _ Config) []result.Metric {
			trips := pairRoundTrips(acc)
			if len(trips) == 0 {
				return nil
			}
			var totalPnl, totalDays float64
			var wins, losses int
			for _, rt := range trips {
				totalPnl += rt.PnL
				totalDays += float64(rt.DaysHeld)
				if rt.PnL > 0 {
					wins++
				} else {
					losses++
				}
			}
			n := float64(len(trips))
			return []result.Metric{
				{Name: "TotalPnl", Value: round2(totalPnl), Unit: result.Dollars},
				{Name: "WinCount", Value: float64(wins), Unit: result.Count},
				{Name: "LossCount", Value: float64(losses), Unit: result.Count},
				{Name: "WinRate", Value: round2(float64(wins) / n * 100), Unit: result.Percent},
				{Name: "AvgHoldingDays", Value: totalDays / n, Unit: result.Days},
			}
		},
	)
}

type sharpeState struct {
	prevValue float64
	hasPrev   bool
	returns   []float64
}

// dailyReturns is shared by SharpeRatio and Volatility: both fold the
// same return series from portfolio values, one risk-adjusting it and
// the other not.
func dailyReturns() (func(Config) sharpeState, func(sharpeState, result.StepResult) sharpeState) {
	init := func(Config) sharpeState { return sharpeState{} }
	update := func(s sharpeState, step result.StepResult) sharpeState {
		if !s.hasPrev {
			return sharpeState{prevValue: step.PortfolioValue, hasPrev: true, returns: s.returns}
		}
		var r float64
		if s.prevValue != 0 {
			r = (step.PortfolioValue - s.prevValue) / s.prevValue
		}
		return sharpeState{prevValue: step.PortfolioValue, hasPrev: true, returns: append(s.returns, r)}
	}
	return init, update
}

// SharpeRatio computes the annualized Sharpe ratio from daily portfolio
// returns: (mean(r) - rf/252) / stdev(r) * sqrt(252). Returns 0 when
// fewer than 2 points or stdev is 0.
func SharpeRatio() Computer {
	init, update := dailyReturns()
	return New(
		"SharpeRatio",
		init,
		update,
		func(s sharpeState, cfg Config) []result.Metric {
			if len(s.returns) == 0 {
				return []result.Metric{{Name: "SharpeRatio", Value: 0, Unit: result.Ratio}}
			}
			mean := meanOf(s.returns)
			sd := stdev(s.returns, mean)
			if sd == 0 {
				return []result.Metric{{Name: "SharpeRatio", Value: 0, Unit: result.Ratio}}
			}
			sharpe := (mean - cfg.RiskFreeRate/252) / sd * math.Sqrt(252)
			return []result.Metric{{Name: "SharpeRatio", Value: sharpe, Unit: result.Ratio}}
		},
	)
}

type drawdownState struct {
	peak    float64
	hasPeak bool
	maxDD   float64
}

// MaxDrawdown maintains a running peak portfolio value and tracks the
// largest percentage decline from it.
func MaxDrawdown() Computer {
	return New(
		"MaxDrawdown",
		func(Config) drawdownState { return drawdownState{} },
		func(s drawdownState, step result.StepResult) drawdownState {
			v := step.PortfolioValue
			if !s.hasPeak || v > s.peak {
				s.peak = v
				s.hasPeak = true
			}
			if s.peak <= 0 {
				return s
			}
			dd := (s.peak - v) / s.peak * 100
			if dd > s.maxDD {
				s.maxDD = dd
			}
			return s
		},
		func(s drawdownState, _ Config) []result.Metric {
			return []result.Metric{{Name: "MaxDrawdown", Value: round2(s.maxDD), Unit: result.Percent}}
		},
	)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
