package httpx

import (
	"io"
	"net/http"
)

const (
	healthResponse    = `{"status":"ok"}`
	hydratingResponse = `{"status":"hydrating"}`
)

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	// Ready reports whether the initial session hydration has finished. Nil means always ready.
	Ready func() bool
}

// Healthz returns a simple 200 OK status for liveness checks.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, r, http.StatusOK, healthResponse)
}

// Readyz returns 503 until the session store has hydrated.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil && !h.Ready() {
		writeProbe(w, r, http.StatusServiceUnavailable, hydratingResponse)
		return
	}
	writeProbe(w, r, http.StatusOK, healthResponse)
}

func writeProbe(w http.ResponseWriter, r *http.Request, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, body); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
