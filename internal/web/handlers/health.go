package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const readinessTimeout = 2 * time.Second

// HealthResponse is the JSON body of /healthz and /readyz
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	Catalogs int               `json:"catalogs,omitempty"`
}

// healthzHandler answers liveness probes; it never touches dependencies
func (h *Handler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// readyzHandler reports the cache, the index storage and the first gallery
// index. The gallery endpoint is not probed; its failures surface as alerts.
func (h *Handler) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Checks:   map[string]string{},
		Catalogs: len(h.ui.Catalogs()),
	}
	status := http.StatusOK

	if h.health != nil {
		for name, err := range h.health.Health(ctx) {
			if err != nil {
				resp.Checks[name] = "unhealthy: " + err.Error()
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "healthy"
		}
	}

	writeHealth(w, status, resp)
}

func writeHealth(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp) //nolint:errcheck // best effort
}
