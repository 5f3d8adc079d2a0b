package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/eventtix-backend/pkg/config"
	"github.com/angelmondragon/eventtix-backend/pkg/db"
	"github.com/angelmondragon/eventtix-backend/pkg/logger"
	"github.com/angelmondragon/eventtix-backend/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func newTestRouter(t *testing.T, deps map[string]db.Pinger) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	return NewOpsRouter(OpsParams{
		Config:       cfg,
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		Gatherer:     reg,
		Dependencies: deps,
	}), reg
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthzIsAlwaysLive(t *testing.T) {
	h, _ := newTestRouter(t, map[string]db.Pinger{"db": stubPinger{err: errors.New("down")}})

	w := serve(h, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", w.Header().Get("X-Eventtix-Env"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestReadyzChecksDependencies(t *testing.T) {
	h, _ := newTestRouter(t, map[string]db.Pinger{"db": stubPinger{}, "redis": stubPinger{}})
	assert.Equal(t, http.StatusOK, serve(h, "/readyz").Code)

	h, _ = newTestRouter(t, map[string]db.Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}})
	w := serve(h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "DEPENDENCY_ERROR")
}

func TestMetricsExposesRegistry(t *testing.T) {
	h, reg := newTestRouter(t, nil)
	orders := metrics.NewOrderMetrics(reg)
	orders.IncOutOfStock()

	w := serve(h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "eventtix_")
}
