package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/lehigh-university-libraries/ocr-api/internal/config"
	"github.com/lehigh-university-libraries/ocr-api/internal/engine"
	"github.com/lehigh-university-libraries/ocr-api/internal/imaging"
	"github.com/lehigh-university-libraries/ocr-api/internal/services/ocr"
)

type Handler struct {
	svc    *ocr.Service
	engine engine.Engine
	cfg    *config.Config
}

// New wires the HTTP surface to the pipeline. A nil engine means the
// model has not been initialized; OCR endpoints fail closed and /health
// reports unavailable until it is set.
func New(svc *ocr.Service, eng engine.Engine, cfg *config.Config) *Handler {
	return &Handler{svc: svc, engine: eng, cfg: cfg}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]any{"detail": message}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}

// writeValidationError reports a request-body validation failure with
// per-field detail.
func (h *Handler) writeValidationError(w http.ResponseWriter, fieldErrors []map[string]any) {
	slog.Error("Request validation failed", "errors", fieldErrors)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	if err := json.NewEncoder(w).Encode(map[string]any{"detail": fieldErrors}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}

func fieldError(location, field, message string) map[string]any {
	return map[string]any{
		"loc":  []string{location, field},
		"msg":  message,
		"type": "value_error",
	}
}

// writePipelineError maps a pipeline failure to its HTTP status: bad
// input shapes are the caller's fault, everything else is a processing
// error. Internal error types never cross the boundary, only the message.
func (h *Handler) writePipelineError(w http.ResponseWriter, label string, err error) {
	switch {
	case errors.Is(err, imaging.ErrInvalidImage), errors.Is(err, imaging.ErrBufferSizeMismatch):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrNotReady):
		h.writeError(w, "OCR model not initialized", http.StatusInternalServerError)
	case errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, label+" timed out", http.StatusInternalServerError)
	default:
		h.writeError(w, label+" error: "+err.Error(), http.StatusInternalServerError)
	}
}

// requireEngine fails closed when the model handle is absent.
func (h *Handler) requireEngine(w http.ResponseWriter) bool {
	if h.engine == nil {
		h.writeError(w, "OCR model not initialized", http.StatusInternalServerError)
		return false
	}
	return true
}

// requestContext attaches the per-request pipeline deadline.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
}

func allowedType(contentType string, allowed []string) bool {
	return slices.Contains(allowed, contentType)
}
