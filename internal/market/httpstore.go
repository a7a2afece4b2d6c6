package market

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kestrelquant/backtest/internal/logger"
	"github.com/kestrelquant/backtest/internal/status"
)

// HTTPStore is a remote bar-feed Store backed by resty, usable as a
// primary source chained to a CSVStore fallback. Transient failures
// (timeouts, 429, 5xx) are retried with backoff before the fallback is
// consulted.
type HTTPStore struct {
	client    *resty.Client
	secondary Store
	cache     map[string]Series
}

// NewHTTPStore builds an HTTPStore against baseURL, retrying transient
// failures (including HTTP 429) up to 3 times with backoff.
func NewHTTPStore(baseURL string, secondary Store) *HTTPStore {
	c := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	return &HTTPStore{client: c, secondary: secondary, cache: make(map[string]Series)}
}

func (h *HTTPStore) Secondary() Store { return h.secondary }

type remoteBar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        float64 `json:"volume"`
}

// GetPrices fetches (and memoizes) the full series for symbol from
// GET /bars/{symbol}, then slices to [start,end].
func (h *HTTPStore) GetPrices(symbol string, start, end time.Time) (Series, error) {
	series, ok := h.cache[symbol]
	if !ok {
		var remote []remoteBar
		resp, err := h.client.R().
			SetPathParam("symbol", symbol).
			SetResult(&remote).
			Get("/bars/{symbol}")
		if err != nil {
			logger.Errorf("market: http store request for %s failed: %v", symbol, err)
			if h.secondary != nil {
				return h.secondary.GetPrices(symbol, start, end)
			}
			return nil, status.New(status.Internal, "fetch %s: %v", symbol, err)
		}
		if resp.StatusCode() == 404 {
			if h.secondary != nil {
				return h.secondary.GetPrices(symbol, start, end)
			}
			return nil, status.New(status.NotFound, "no remote data for symbol %s", symbol)
		}
		if resp.IsError() {
			if h.secondary != nil && (resp.StatusCode() == 429 || resp.StatusCode() >= 500) {
				logger.Errorf("market: http store request for %s failed with status %d", symbol, resp.StatusCode())
				return h.secondary.GetPrices(symbol, start, end)
			}
			return nil, status.New(status.Internal, "fetch %s: status %d", symbol, resp.StatusCode())
		}

		parsed := make(Series, 0, len(remote))
		for _, rb := range remote {
			d, perr := time.Parse(dateLayout, rb.Date)
			if perr != nil {
				return nil, status.New(status.Internal, "parse remote date %q: %v", rb.Date, perr)
			}
			parsed = append(parsed, Bar{Date: d, Open: rb.Open, High: rb.High, Low: rb.Low, Close: rb.Close, AdjustedClose: rb.AdjustedClose, Volume: rb.Volume})
		}
		h.cache[symbol] = parsed
		series = parsed
		logger.Infof("market: fetched %d remote bars for %s", len(parsed), symbol)
	}
	return series.Slice(start, end), nil
}

func (h *HTTPStore) Preload(symbols []string) error {
	for _, sym := range symbols {
		if _, err := h.GetPrices(sym, time.Time{}, time.Time{}); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTPStore) Clear() {
	h.cache = make(map[string]Series)
}
