package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/config"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string   `json:"status"`
	Adapters []string `json:"adapters"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg      *config.Config
	adapters func() []datasource.DatasourceAdapterInfo
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. adapters lists the compiled-in
// datasource types; nil reports none.
func NewHealthHandler(cfg *config.Config, adapters func() []datasource.DatasourceAdapterInfo, logger *zap.Logger) *HealthHandler {
	if adapters == nil {
		adapters = func() []datasource.DatasourceAdapterInfo { return nil }
	}
	return &HealthHandler{cfg: cfg, adapters: adapters, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// The server holds no connections between requests, so health only reports
// which adapters this binary can serve.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	types := make([]string, 0)
	for _, info := range h.adapters() {
		types = append(types, info.Type)
	}

	if err := WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Adapters: types}); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-quality",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
