package market

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelquant/backtest/internal/status"
)

func barFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/bars/AAPL", func(w http.ResponseWriter, r *http.Request) {
		bars := []remoteBar{
			{Date: "2024-01-02", Open: 150, High: 152, Low: 149, Close: 151, AdjustedClose: 151, Volume: 1000},
			{Date: "2024-01-03", Open: 151, High: 155, Low: 150, Close: 154, AdjustedClose: 154, Volume: 1200},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bars)
	})
	mux.HandleFunc("/bars/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestHTTPStoreFetchesAndMemoizes(t *testing.T) {
	srv := barFeedServer(t)
	defer srv.Close()

	store := NewHTTPStore(srv.URL, nil)
	series, err := store.GetPrices("AAPL", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 151.0, series[0].Close)

	// Second call must come from the cache, not the server.
	srv.Close()
	series, err = store.GetPrices("AAPL", date("2024-01-03"), time.Time{})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 154.0, series[0].Close)
}

func TestHTTPStoreUnknownSymbolNotFound(t *testing.T) {
	srv := barFeedServer(t)
	defer srv.Close()

	store := NewHTTPStore(srv.URL, nil)
	_, err := store.GetPrices("ZZZ", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, status.Is(err, status.NotFound))
}

func TestHTTPStoreFallsBackToSecondaryOn404(t *testing.T) {
	srv := barFeedServer(t)
	defer srv.Close()

	fallback := &fakeStore{series: Series{{Date: date("2024-01-02"), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1}}}
	store := NewHTTPStore(srv.URL, fallback)
	series, err := store.GetPrices("MSFT", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 10.5, series[0].Close)
}
