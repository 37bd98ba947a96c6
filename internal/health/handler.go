package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"gradebook/common/httputil"
	"gradebook/common/metrics"

	"github.com/go-chi/chi/v5"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Handler struct {
	checks  map[string]Check
	metrics *metrics.HealthMetrics
	logger  *slog.Logger
	timeout time.Duration
}

func NewHandler(logger *slog.Logger, m *metrics.HealthMetrics) *Handler {
	return &Handler{
		checks:  make(map[string]Check),
		metrics: m,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// Register adds a readiness dependency. Call before serving.
func (h *Handler) Register(name string, check Check) {
	h.checks[name] = check
}

// Dependencies returns the registered dependency names, sorted.
func (h *Handler) Dependencies() []string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	deps, ok := h.CheckAll(r.Context())
	if !ok {
		httputil.RespondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Dependencies: deps})
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ready", Dependencies: deps})
}

// CheckAll runs every check and records the outcome. ok is false when any
// dependency is down.
func (h *Handler) CheckAll(ctx context.Context) (map[string]string, bool) {
	deps := make(map[string]string, len(h.checks))
	ok := true
	for _, name := range h.Dependencies() {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		start := time.Now()
		err := h.checks[name](checkCtx)
		cancel()

		h.metrics.RecordDependencyCheck(ctx, name, time.Since(start), err)
		if err != nil {
			h.logger.WarnContext(ctx, "dependency check failed", "dependency", name, "error", err)
			deps[name] = "down"
			ok = false
			continue
		}
		deps[name] = "up"
	}
	return deps, ok
}

// StartChecks runs CheckAll every interval until ctx is cancelled, keeping
// the dependency gauges current between readiness probes.
func (h *Handler) StartChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.CheckAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.CheckAll(ctx)
		}
	}
}
