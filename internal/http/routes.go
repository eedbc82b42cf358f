package httpx

import (
	"log/slog"
	"net/http"

	"github.com/skyportal/nmma-analysis/internal/core"
	"github.com/skyportal/nmma-analysis/internal/domain/model"
	"github.com/skyportal/nmma-analysis/internal/observability/statsd"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Orchestrator AnalysisSubmitter
	// Optional: job status lookups. Leave nil when tracking is disabled.
	Tracker core.JobTracker
	// Optional: allow-listed models. Defaults to the built-in catalog.
	Catalog *model.Catalog
	// Defaults are merged under every submission's analysis parameters.
	Defaults     model.AnalysisParameters
	MaxBodyBytes int64
	Metrics      statsd.Sink
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router. Middleware is applied by the caller.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	catalog := services.Catalog
	if catalog == nil {
		catalog = model.DefaultCatalog()
	}
	analysisHandlers := &AnalysisHandlers{
		Submitter:    services.Orchestrator,
		Tracker:      services.Tracker,
		Catalog:      catalog,
		Defaults:     services.Defaults,
		MaxBodyBytes: services.MaxBodyBytes,
		Metrics:      services.Metrics,
		Logger:       services.Logger,
	}

	registerAnalysisRoutes(mux, analysisHandlers)
	mux.Handle("GET "+healthPath, http.HandlerFunc(healthHandler))
	mux.Handle("HEAD "+healthPath, http.HandlerFunc(healthHandler))

	return mux
}

func registerAnalysisRoutes(mux *http.ServeMux, h *AnalysisHandlers) {
	mux.HandleFunc("POST /analysis", h.Submit)
	mux.HandleFunc("GET /analysis", activeHandler)
	mux.HandleFunc("GET /analysis/{id}", h.GetJob)
}
