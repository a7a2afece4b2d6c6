// Package config loads and validates the run configuration: watchlist,
// cash, commission schedule, risk-free rate, date range, and the CSV
// data directory the price store reads from.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kestrelquant/backtest/internal/status"
)

// Commission is the per-trade commission schedule: max(PerShare*qty, Min).
type Commission struct {
	PerShare float64 `json:"per_share" validate:"gte=0"`
	Min      float64 `json:"min" validate:"gte=0"`
}

// Compute returns the commission for a trade of qty shares, rounded to
// two decimals.
func (c Commission) Compute(qty float64) float64 {
	amount := c.PerShare * qty
	if amount < c.Min {
		amount = c.Min
	}
	return roundCents(amount)
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// Config is the run configuration, unmarshaled from JSON and validated
// with struct tags rather than a "fill defaults" block.
type Config struct {
	DataDir      string     `json:"data_dir" validate:"required_without=Synthetic"`
	BaseURL      string     `json:"base_url,omitempty"`
	Synthetic    bool       `json:"synthetic,omitempty"`
	Watchlist    []string   `json:"watchlist" validate:"required,min=1,dive,required"`
	InitialCash  float64    `json:"initial_cash" validate:"gt=0"`
	Commission   Commission `json:"commission" validate:"required"`
	RiskFreeRate float64    `json:"risk_free_rate" validate:"gte=0"`
	Start        time.Time  `json:"start" validate:"required"`
	End          time.Time  `json:"end" validate:"required,gtfield=Start"`
	Verbosity    int        `json:"verbosity,omitempty"`
}

var validate = validator.New()

// Load reads and validates a Config from a JSON file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, status.New(status.NotFound, "read config %s: %v", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, status.New(status.InvalidArgument, "parse config %s: %v", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg's struct tags, surfacing the first failure as an
// InvalidArgument Status.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return status.New(status.InvalidArgument, "invalid config: %v", err)
	}
	return nil
}
