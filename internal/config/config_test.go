package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelquant/backtest/internal/status"
)

func TestCommissionCompute(t *testing.T) {
	c := Commission{PerShare: 0.01, Min: 1.00}
	assert.Equal(t, 1.00, c.Compute(10))  // 0.10 < 1.00 floor
	assert.Equal(t, 2.00, c.Compute(200)) // 2.00 > 1.00 floor
}

func TestValidateRejectsBadRange(t *testing.T) {
	cfg := &Config{
		DataDir:     "testdata",
		Watchlist:   []string{"AAPL"},
		InitialCash: 10000,
		Commission:  Commission{PerShare: 0.01, Min: 1.00},
		Start:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	err := Validate(cfg)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.InvalidArgument))
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{
		DataDir:     "testdata",
		Watchlist:   []string{"AAPL", "MSFT"},
		InitialCash: 10000,
		Commission:  Commission{PerShare: 0.01, Min: 1.00},
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, Validate(cfg))
}

func TestValidateSyntheticNeedsNoDataDir(t *testing.T) {
	cfg := &Config{
		Synthetic:   true,
		Watchlist:   []string{"AAPL"},
		InitialCash: 10000,
		Commission:  Commission{PerShare: 0.01, Min: 1.00},
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, Validate(cfg))

	cfg.Synthetic = false
	assert.Error(t, Validate(cfg))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.json")
	require.Error(t, err)
	assert.True(t, status.Is(err, status.NotFound))
}
