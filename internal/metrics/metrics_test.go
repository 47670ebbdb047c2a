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
)

func TestObserveResolve(t *testing.T) {
	m := New()
	m.ObserveResolve("redirect")
	m.ObserveResolve("redirect")
	m.ObserveResolve("not_found")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("not_found")))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/{code}", http.MethodGet, http.StatusTemporaryRedirect, 3*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/{code}", "GET", "307")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("unmatched", "GET", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveResolve("redirect")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `shortlinks_resolutions_total{outcome="redirect"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
