package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-quality/pkg/logging"
	"github.com/ekaya-inc/ekaya-quality/pkg/services"
	sqlguard "github.com/ekaya-inc/ekaya-quality/pkg/sql"
)

// maxAnalyzeBodyBytes bounds the analyze request body.
const maxAnalyzeBodyBytes = 1 << 20

// ListAdaptersResponse wraps the adapter list.
type ListAdaptersResponse struct {
	Adapters []datasource.DatasourceAdapterInfo `json:"adapters" yaml:"adapters"`
}

// QualityHandler serves quality analysis requests.
type QualityHandler struct {
	qualityService services.QualityService
	logger         *zap.Logger
}

// NewQualityHandler creates a new quality handler.
func NewQualityHandler(qualityService services.QualityService, logger *zap.Logger) *QualityHandler {
	return &QualityHandler{
		qualityService: qualityService,
		logger:         logger,
	}
}

// RegisterRoutes registers the quality handler's routes on the given mux.
// analyzeLimit, when not nil, wraps the analyze route only.
func (h *QualityHandler) RegisterRoutes(mux *http.ServeMux, analyzeLimit func(http.Handler) http.Handler) {
	var analyze http.Handler = http.HandlerFunc(h.Analyze)
	if analyzeLimit != nil {
		analyze = analyzeLimit(analyze)
	}
	mux.Handle("POST /api/quality/analyze", analyze)
	mux.HandleFunc("GET /api/quality/adapters", h.ListAdapters)
}

// ListAdapters handles GET /api/quality/adapters
// Returns the datasource types this binary was built with.
func (h *QualityHandler) ListAdapters(w http.ResponseWriter, r *http.Request) {
	response := ApiResponse{
		Success: true,
		Data:    ListAdaptersResponse{Adapters: h.qualityService.ListAdapters()},
	}
	if err := WriteFormatted(w, r, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Analyze handles POST /api/quality/analyze
// Runs one analysis pass over the datasource described in the body and
// returns every table report plus the database overview.
func (h *QualityHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req services.AnalyzeRequest
	if err := decodeAnalyzeRequest(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if code, msg := validateAnalyzeRequest(&req); code != "" {
		h.writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	if msg := checkRequestValues(req); msg != "" {
		h.logger.Warn("Rejected analysis request with injection-shaped values",
			zap.String("datasource_type", req.DatasourceType),
			zap.String("detail", msg))
		h.writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	result, err := h.qualityService.AnalyzeDatasource(r.Context(), req)
	if err != nil {
		status, code := classifyAnalyzeError(err)
		message := logging.SanitizeError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Quality analysis failed",
				zap.String("datasource_type", req.DatasourceType),
				zap.Int("status", status),
				zap.String("error", message))
		}
		h.writeError(w, status, code, message)
		return
	}

	if err := WriteFormatted(w, r, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to encode analysis response", zap.Error(err))
	}
}

func (h *QualityHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// decodeAnalyzeRequest reads a JSON body, or YAML when the Content-Type says so.
func decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request, req *services.AnalyzeRequest) error {
	body := http.MaxBytesReader(w, r.Body, maxAnalyzeBodyBytes)
	defer body.Close()

	if isYAMLMediaType(r.Header.Get("Content-Type")) {
		if err := yaml.NewDecoder(body).Decode(req); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("request body is empty")
			}
			return fmt.Errorf("invalid YAML body: %w", err)
		}
		return nil
	}

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// checkRequestValues runs libinjection over every request value that names a
// table or column pattern. Identifiers are always quoted before they reach
// SQL; this rejects obviously hostile input early.
func checkRequestValues(req services.AnalyzeRequest) string {
	results := sqlguard.CheckValues("tables", req.Tables)
	if req.Options != nil {
		results = append(results, sqlguard.CheckValues("optional_field_patterns", req.Options.OptionalFieldPatterns)...)
	}
	if len(results) == 0 {
		return ""
	}

	fields := make([]string, 0, len(results))
	for _, r := range results {
		fields = append(fields, fmt.Sprintf("%s (%s)", r.Field, r.Fingerprint))
	}
	return "potential SQL injection detected in " + strings.Join(fields, ", ")
}

// classifyAnalyzeError maps service errors to an HTTP status and error code.
func classifyAnalyzeError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrConfiguration):
		return http.StatusBadRequest, "invalid_configuration"
	case errors.Is(err, apperrors.ErrUnsupportedDatasource):
		return http.StatusBadRequest, "unsupported_datasource"
	case errors.Is(err, apperrors.ErrDataAccess):
		return http.StatusBadGateway, "datasource_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
