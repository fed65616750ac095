package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homiodev/homio-hquery/internal/query"
)

func TestMetrics_Disabled(t *testing.T) {
	m := New(Config{})

	assert.NotPanics(t, func() {
		m.CallStarted("uptime")
		m.CallFinished("uptime", false, time.Second, nil)
		m.Invoked("uptime", "process", 0, time.Second)
		m.CacheHit("k")
		m.CacheMiss("k")
		m.CacheStore("k")
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Enabled(t *testing.T) {
	m := New(Config{Enabled: true, Namespace: "test"})

	m.CallStarted("uptime")
	m.CallFinished("uptime", false, 20*time.Millisecond, nil)
	m.CallStarted("uptime")
	m.CallFinished("uptime", true, time.Millisecond, nil)
	m.CallStarted("scan")
	m.CallFinished("scan", false, time.Second, &query.Error{Kind: query.ErrMatchedErrorLine})
	m.Invoked("uptime", "process", 0, 20*time.Millisecond)
	m.CacheMiss("uptime")
	m.CacheStore("uptime")
	m.CacheHit("uptime")

	assert.InDelta(t, 1, testutil.ToFloat64(m.calls.WithLabelValues("uptime", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.calls.WithLabelValues("uptime", "cached")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errors.WithLabelValues("scan", "matched_error_line")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.invocations.WithLabelValues("uptime", "process", "0")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheStores), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.activeCalls), 0)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_calls_total")
}
