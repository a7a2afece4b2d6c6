// Package report writes a simulator RunResult to disk as JSON or CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrelquant/backtest/internal/result"
)

// WriteJSON marshals res to <outdir>/run_result.json.
func WriteJSON(res *result.RunResult, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "run_result.json"), b, 0o644)
}

// WriteStepsCSV writes one row per step to <outdir>/steps.csv: date,
// portfolio value, cash, the day's trade count, and the number of orders
// submitted that day.
func WriteStepsCSV(steps []result.StepResult, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "steps.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", "portfolio_value", "cash", "trades", "orders_submitted"}); err != nil {
		return err
	}
	for _, s := range steps {
		row := []string{
			s.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f", s.PortfolioValue),
			fmt.Sprintf("%.2f", s.Cash),
			fmt.Sprintf("%d", len(s.Trades)),
			fmt.Sprintf("%d", len(s.OrdersSubmitted)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetricsCSV writes one row per metric to <outdir>/metrics.csv.
func WriteMetricsCSV(metrics []result.Metric, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "metrics.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"name", "value", "unit"}); err != nil {
		return err
	}
	for _, m := range metrics {
		row := []string{m.Name, fmt.Sprintf("%.4f", m.Value), m.Unit.String()}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
