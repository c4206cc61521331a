package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fsbo/internal/cache"
	"github.com/sells-group/fsbo/internal/config"
	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/resilience"
	"github.com/sells-group/fsbo/pkg/realtymole"
)

const statsBody = `{
	"zipCode": "78704",
	"saleData": {
		"averageDaysOnMarket": 25,
		"medianPrice": 515000,
		"averageListToSaleRatio": 0.99,
		"history": {
			"2026-01": {"averagePrice": 400000},
			"2026-03": {"averagePrice": 410000},
			"2026-06": {"averagePrice": 424000}
		}
	}
}`

func newStatsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/zipCodes/78704", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testGuard() *resilience.Guard {
	return resilience.NewGuard(config.ResilienceConfig{MaxAttempts: 1})
}

func TestService_ForZip(t *testing.T) {
	srv, _ := newStatsServer(t, http.StatusOK, statsBody)
	svc := NewService(newTestClassifier(), realtymole.NewClient("k", realtymole.WithBaseURL(srv.URL)), testGuard(), nil)

	rep, err := svc.ForZip(context.Background(), "78704")
	require.NoError(t, err)

	// 50 + 10 (25 days) + 15 (6% change) + 0 (0.99 ratio)
	assert.Equal(t, Temperature{Score: 75, Label: "Hot"}, rep.Temperature)
	assert.Equal(t, "78704", rep.Zip)
	require.NotNil(t, rep.Indicators.PriceChangePercent)
	assert.InDelta(t, 6.0, *rep.Indicators.PriceChangePercent, 1e-9)
	require.NotNil(t, rep.MedianPrice)
	assert.Equal(t, 515000.0, *rep.MedianPrice)
	assert.Nil(t, rep.AveragePrice)
}

func TestService_ForZipMissingIndicators(t *testing.T) {
	srv, _ := newStatsServer(t, http.StatusOK, `{"zipCode":"78704","saleData":{}}`)
	svc := NewService(newTestClassifier(), realtymole.NewClient("k", realtymole.WithBaseURL(srv.URL)), testGuard(), nil)

	rep, err := svc.ForZip(context.Background(), "78704")
	require.NoError(t, err)
	assert.Equal(t, Temperature{Score: 50, Label: "Warm"}, rep.Temperature)
}

func TestService_ForZipCached(t *testing.T) {
	srv, calls := newStatsServer(t, http.StatusOK, statsBody)
	c := cache.New(config.CacheConfig{TTLMinutes: 5})
	t.Cleanup(c.Stop)
	svc := NewService(newTestClassifier(), realtymole.NewClient("k", realtymole.WithBaseURL(srv.URL)), testGuard(), c)

	first, err := svc.ForZip(context.Background(), "78704")
	require.NoError(t, err)
	second, err := svc.ForZip(context.Background(), "78704")
	require.NoError(t, err)

	assert.Equal(t, first.Temperature, second.Temperature)
	assert.Equal(t, int32(1), calls.Load())
}

func TestService_ForZipProviderError(t *testing.T) {
	srv, calls := newStatsServer(t, http.StatusServiceUnavailable, `{"message":"down"}`)
	svc := NewService(newTestClassifier(), realtymole.NewClient("k", realtymole.WithBaseURL(srv.URL)), testGuard(), nil)

	_, err := svc.ForZip(context.Background(), "78704")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market: stats for 78704")
	assert.Contains(t, err.Error(), "unexpected status 503")
	assert.Equal(t, int32(1), calls.Load())
}

func TestService_ForZipRejectsBadZip(t *testing.T) {
	svc := NewService(newTestClassifier(), nil, nil, nil)

	for _, zip := range []string{"", "7870", "787044", "ABCDE"} {
		_, err := svc.ForZip(context.Background(), zip)
		assert.ErrorIs(t, err, model.ErrValidation, zip)
	}
}

func TestService_ForZipNoProvider(t *testing.T) {
	svc := NewService(newTestClassifier(), nil, nil, nil)
	_, err := svc.ForZip(context.Background(), "78704")
	assert.ErrorContains(t, err, "no statistics provider")
}
