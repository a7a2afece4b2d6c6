package metric

import (
	"math"

	"github.com/kestrelquant/backtest/internal/result"
	"github.com/kestrelquant/backtest/internal/trade"
)

// ProfitFactor is gross profit divided by gross loss across round-trips,
// reusing Summary's round-trip pairing. Returns 0 when there are no
// losing round-trips (avoids a division by zero rather than reporting
// +Inf).
func ProfitFactor() Computer {
	return New(
		"ProfitFactor",
		func(Config) []trade.Trade { return nil },
		func(acc []trade.Trade, step result.StepResult) []trade.Trade {
			return append(acc, step.Trades...)
		},
		func(acc []trade.Trade, _ Config) []result.Metric {
			trips := pairRoundTrips(acc)
			var grossProfit, grossLoss float64
			for _, rt := range trips {
				if rt.PnL > 0 {
					grossProfit += rt.PnL
				} else {
					grossLoss += -rt.PnL
				}
			}
			if grossLoss == 0 {
				return []result.Metric{{Name: "ProfitFactor", Value: 0, Unit: result.Ratio}}
			}
			return []result.Metric{{Name: "ProfitFactor", Value: round2(grossProfit / grossLoss), Unit: result.Ratio}}
		},
	)
}

// Volatility is the annualized standard deviation of daily portfolio
// returns, the non-risk-adjusted sibling of SharpeRatio, reusing the
// same return-series fold.
func Volatility() Computer {
	init, update := dailyReturns()
	return New(
		"Volatility",
		init,
		update,
		func(s sharpeState, _ Config) []result.Metric {
			if len(s.returns) == 0 {
				return []result.Metric{{Name: "Volatility", Value: 0, Unit: result.Percent}}
			}
			mean := meanOf(s.returns)
			sd := stdev(s.returns, mean)
			annualized := sd * math.Sqrt(252) * 100
			return []result.Metric{{Name: "Volatility", Value: round2(annualized), Unit: result.Percent}}
		},
	)
}
