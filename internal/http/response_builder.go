package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
	"emianalyzer/internal/log"
	"emianalyzer/internal/middleware/trace"
	"emianalyzer/internal/ports"
	"emianalyzer/internal/services"
)

// JSONResponseBuilder collects status and headers before writing a JSON
// body.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
}

// NewJSONResponse starts a 200 response.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Attachment marks the response as a download named filename.
func (b *JSONResponseBuilder) Attachment(filename string) *JSONResponseBuilder {
	return b.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func (b *JSONResponseBuilder) writeHeaders(w http.ResponseWriter, contentType string) {
	w.Header().Set("Content-Type", contentType)
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
}

// JSON writes body as JSON. A nil body writes only the status.
func (b *JSONResponseBuilder) JSON(w http.ResponseWriter, body any) {
	if body == nil {
		for k, v := range b.headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	b.writeHeaders(w, "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// Bytes writes a raw body of the given content type.
func (b *JSONResponseBuilder) Bytes(w http.ResponseWriter, contentType string, body []byte) {
	b.writeHeaders(w, contentType)
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Internal errors are logged and hidden from the
// client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := ErrorBody{RequestID: trace.GetRequestID(r.Context())}

	var terms *finance.TermsError
	switch {
	case errors.As(err, &terms):
		body.Error = "invalid loan terms"
		body.Details = terms.Problems
	case status == http.StatusInternalServerError:
		body.Error = "internal error"
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
	default:
		body.Error = err.Error()
	}

	NewJSONResponse().Status(status).JSON(w, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	NewJSONResponse().Status(status).JSON(w, body)
}
