package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gradebook/common/logger"
	"gradebook/common/metrics"
	"gradebook/internal/health"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(h *health.Handler) *chi.Mux {
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func get(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, health.HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp health.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHealth(t *testing.T) {
	h := health.NewHandler(logger.Discard(), &metrics.HealthMetrics{})
	h.Register("database", func(context.Context) error { return errors.New("down") })

	w, resp := get(t, setupRouter(h), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Status)
}

func TestReady(t *testing.T) {
	t.Run("AllDependenciesUp", func(t *testing.T) {
		hm := &metrics.HealthMetrics{}
		h := health.NewHandler(logger.Discard(), hm)
		h.Register("database", func(context.Context) error { return nil })
		h.Register("nats", func(context.Context) error { return nil })

		w, resp := get(t, setupRouter(h), "/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, map[string]string{"database": "up", "nats": "up"}, resp.Dependencies)
		assert.True(t, hm.Available("database"))
	})

	t.Run("DependencyDown", func(t *testing.T) {
		hm := &metrics.HealthMetrics{}
		h := health.NewHandler(logger.Discard(), hm)
		h.Register("database", func(context.Context) error { return nil })
		h.Register("kafka", func(context.Context) error { return errors.New("no brokers") })

		w, resp := get(t, setupRouter(h), "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "down", resp.Dependencies["kafka"])
		assert.False(t, hm.Available("kafka"))
		assert.True(t, hm.Available("database"))
	})
}

func TestStartChecks(t *testing.T) {
	hm := &metrics.HealthMetrics{}
	h := health.NewHandler(logger.Discard(), hm)
	h.Register("database", func(context.Context) error { return nil })
	assert.Equal(t, []string{"database"}, h.Dependencies())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.StartChecks(ctx, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return hm.Available("database") }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
