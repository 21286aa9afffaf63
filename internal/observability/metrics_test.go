package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CacheCounters(t *testing.T) {
	m := NewMetrics("test")

	m.CacheHit("ens")
	m.CacheHit("ens")
	m.CacheMiss("nfts")
	m.CacheError("profile", "set")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("ens", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("nfts", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheErrors.WithLabelValues("profile", "set")))
}

func TestMetrics_ObserveUpstream(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveUpstream("alchemy", "getNFTsForOwner", time.Now(), nil)
	m.ObserveUpstream("alchemy", "getNFTsForOwner", time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("alchemy", "getNFTsForOwner")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.UpstreamLatency))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.CacheHit("ens")
	m.ObserveUpstream("rpc", "eth_call", time.Now(), nil)
	m.HTTPRequest("/api/naming/{address}", 200)
}

func TestMetrics_HTTPRequest(t *testing.T) {
	m := NewMetrics("test")

	m.HTTPRequest("/api/naming/{address}", 200)
	m.HTTPRequest("/api/naming/{address}", 400)
	m.HTTPRequest("/api/naming/{address}", 200)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/naming/{address}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/naming/{address}", "400")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("test")
	m.CacheMiss("ens")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `test_cache_requests_total{kind="ens",result="miss"} 1`))
}

func TestNewMetrics_Twice(t *testing.T) {
	// Separate registries must not collide
	NewMetrics("dup")
	NewMetrics("dup")
}
