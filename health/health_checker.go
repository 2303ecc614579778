// Package health reports whether the graph store behind medigraph is reachable.
package health

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/giygas/medigraph/graph"
	"github.com/giygas/medigraph/interfaces"
)

const (
	pingTimeout   = 3 * time.Second
	slowPingLimit = 1 * time.Second
)

// storeStats is implemented by stores that can report their contents cheaply.
type storeStats interface {
	NodeCount() int
	RelationshipCount() int
	GetLastUpdated() time.Time
	IsWriting() bool
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store     graph.Store
	backend   string
	startedAt time.Time
}

// NewHealthChecker creates a new health checker for store
func NewHealthChecker(store graph.Store, backend string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		store:     store,
		backend:   backend,
		startedAt: time.Now(),
	}
}

// HealthCheck pings the store. An unreachable store is unhealthy, a slow
// one is degraded but still served.
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	latency := time.Since(start)

	data = map[string]any{
		"backend":        h.backend,
		"ping_ms":        latency.Milliseconds(),
		"uptime_seconds": math.Round(time.Since(h.startedAt).Seconds()),
	}

	switch {
	case err != nil:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		data["error"] = err.Error()

	case latency > slowPingLimit:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	if stats, ok := h.store.(storeStats); ok {
		data["nodes"] = stats.NodeCount()
		data["relationships"] = stats.RelationshipCount()
		data["is_writing"] = stats.IsWriting()
		if last := stats.GetLastUpdated(); !last.IsZero() {
			data["last_write"] = last.Format(time.RFC3339)
		}
	}

	return status, data, httpStatus
}
