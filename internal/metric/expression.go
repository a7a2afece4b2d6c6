package metric

import (
	"github.com/Knetic/govaluate"

	"github.com/kestrelquant/backtest/internal/result"
	"github.com/kestrelquant/backtest/internal/status"
)

// EvaluateExpression computes one additional derived metric as an
// arithmetic expression over the already-finalized metrics (e.g.
// "TotalPnl / InitialCash * 100"). It runs once, after every Computer in
// the list has finalized, not as a fold itself: the expression needs
// the whole metric set at once, not a per-step view.
func EvaluateExpression(name, expr string, metrics []result.Metric, cfg Config) (result.Metric, error) {
	params := make(map[string]interface{}, len(metrics)+1)
	for _, m := range metrics {
		params[m.Name] = m.Value
	}
	params["InitialCash"] = cfg.InitialCash
	params["RiskFreeRate"] = cfg.RiskFreeRate

	evaluable, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return result.Metric{}, status.New(status.InvalidArgument, "parse expression %q: %v", expr, err)
	}
	value, err := evaluable.Evaluate(params)
	if err != nil {
		return result.Metric{}, status.New(status.InvalidArgument, "evaluate expression %q: %v", expr, err)
	}
	f, ok := value.(float64)
	if !ok {
		return result.Metric{}, status.New(status.InvalidArgument, "expression %q did not evaluate to a number", expr)
	}
	return result.Metric{Name: name, Value: f, Unit: result.Ratio}, nil
}
