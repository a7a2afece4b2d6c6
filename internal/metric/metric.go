// Package metric implements a type-erased fold-computer framework:
// each computer exposes init/update/finalize over its own State type,
// wrapped so a heterogeneous list of computers can be run uniformly.
package metric

import (
	"math"

	"github.com/kestrelquant/backtest/internal/result"
)

// Config carries the parameters finalize steps need (the risk-free rate
// for Sharpe, the initial cash for percentage-based metrics).
type Config struct {
	RiskFreeRate float64
	InitialCash  float64
}

// Computer is the type-erased contract every metric exposes: run the
// fold over steps and produce the final metric list. The wrapper closes
// over the fold internally so heterogeneous State types never leak out.
type Computer interface {
	Name() string
	Run(cfg Config, steps []result.StepResult) []result.Metric
}

// foldComputer wraps a (init, update, finalize) triple over a generic
// State S behind the untyped Computer interface.
type foldComputer[S any] struct {
	name     string
	initFn   func(cfg Config) S
	updateFn func(s S, step result.StepResult) S
	finalFn  func(s S, cfg Config) []result.Metric
}

func (f foldComputer[S]) Name() string { return f.name }

func (f foldComputer[S]) Run(cfg Config, steps []result.StepResult) []result.Metric {
	s := f.initFn(cfg)
	for _, step := range steps {
		s = f.updateFn(s, step)
	}
	return f.finalFn(s, cfg)
}

// New wraps a fold triple as a Computer. Exported so callers (and tests)
// can build ad hoc computers the same way the built-ins below do.
func New[S any](name string, init func(Config) S, update func(S, result.StepResult) S, finalize func(S, Config) []result.Metric) Computer {
	return foldComputer[S]{name: name, initFn: init, updateFn: update, finalFn: finalize}
}

// RunAll folds every computer over steps and concatenates their metrics.
func RunAll(cfg Config, steps []result.StepResult, computers []Computer) []result.Metric {
	var out []result.Metric
	for _, c := range computers {
		out = append(out, c.Run(cfg, steps)...)
	}
	return out
}

// Defaults returns the three required built-ins.
func Defaults() []Computer {
	return []Computer{Summary(), SharpeRatio(), MaxDrawdown()}
}

// stdev is the population standard deviation (divide by n, not n-1):
// deterministic and well-defined even for the small samples a short
// backtest run produces.
func stdev(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
