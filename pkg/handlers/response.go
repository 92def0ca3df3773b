package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

// ApiResponse wraps successful payloads.
type ApiResponse struct {
	Success bool   `json:"success" yaml:"success"`
	Data    any    `json:"data,omitempty" yaml:"data,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteYAML writes a YAML response and returns any encoding error.
func WriteYAML(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/yaml")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// wantsYAML reports whether the client asked for YAML, either with
// ?format=yaml or an Accept header naming a YAML media type.
func wantsYAML(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "yaml", "yml":
		return true
	case "json":
		return false
	}
	return isYAMLMediaType(r.Header.Get("Accept"))
}

func isYAMLMediaType(value string) bool {
	v := strings.ToLower(value)
	return strings.Contains(v, "application/yaml") ||
		strings.Contains(v, "application/x-yaml") ||
		strings.Contains(v, "text/yaml")
}

// WriteFormatted writes data as YAML or JSON depending on the request.
func WriteFormatted(w http.ResponseWriter, r *http.Request, statusCode int, data any) error {
	if wantsYAML(r) {
		return WriteYAML(w, statusCode, data)
	}
	return WriteJSON(w, statusCode, data)
}
