package api

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen --config=oapi-codegen.yaml openapi.yaml

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains the plain HTTP handlers served outside /api/v1.
type Handler struct {
	checks  map[string]Pinger
	version string
}

// NewHandler creates a new Handler. checks are pinged by the health
// endpoint, keyed by the name reported in the response.
func NewHandler(version string, checks map[string]Pinger) *Handler {
	return &Handler{checks: checks, version: version}
}

// HandleHealth reports service health. Dependencies are pinged in parallel;
// it returns 503 when any check fails.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := models.HealthStatus{
		Status:    "ok",
		Service:   "rfdb",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(h.checks)),
	}
	code := http.StatusOK

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for name, p := range h.checks {
		g.Go(func() error {
			err := p.Ping(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status.Checks[name] = err.Error()
				status.Status = "degraded"
				code = http.StatusServiceUnavailable
				return nil
			}
			status.Checks[name] = "ok"
			return nil
		})
	}
	_ = g.Wait()
	writeJSON(w, code, status)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
