package httpx

import (
	"io"
	"net/http"
)

const (
	healthPath     = "/health"
	healthResponse = "OK"
)

// healthHandler returns a plain 200 OK for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// activeHandler answers GET /analysis, which callers use to probe the service.
func activeHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "active"})
}
