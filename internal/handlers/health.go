package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const serviceVersion = "1.0.0"

var endpoints = []string{
	"/ocr",
	"/v1/ocr",
	"/binary_ocr",
	"/fast_ocr",
	"/paddleocr",
	"/easyocr",
	"/upload",
	"/upload_pdf",
	"/health",
}

// HandleHealth reports engine readiness: 503 while the model handle is
// absent, 200 with model identity afterwards.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		h.writeError(w, "OCR model not initialized", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, map[string]any{
		"status":    "healthy",
		"model":     h.engine.Model(),
		"providers": h.engine.Providers(),
	})
}

// HandleRoot serves service metadata at / and the JSON 404 payload for
// every unknown path.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.writeNotFound(w, r)
		return
	}
	h.writeJSON(w, map[string]any{
		"message":   "OCR API Service",
		"version":   serviceVersion,
		"endpoints": endpoints,
		"features": []string{
			"Multiple OCR API compatibility",
			"Base64 image input",
			"File upload support",
			"PDF image extraction",
		},
	})
}

func (h *Handler) writeNotFound(w http.ResponseWriter, r *http.Request) {
	slog.Warn("Unknown path", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"error":               "Not Found",
		"message":             "Path '" + r.URL.Path + "' not found",
		"available_endpoints": append([]string{"/"}, endpoints...),
	}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}

// Routes returns the service mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/v1/ocr", h.HandleOCR)
	mux.HandleFunc("/ocr", h.HandleOCR)
	mux.HandleFunc("/paddleocr", h.HandlePaddleOCR)
	mux.HandleFunc("/easyocr", h.HandleEasyOCR)
	mux.HandleFunc("/binary_ocr", h.HandleBinaryOCR)
	mux.HandleFunc("/fast_ocr", h.HandleFastOCR)
	mux.HandleFunc("/upload", h.HandleUpload)
	mux.HandleFunc("/upload_pdf", h.HandleUploadPDF)
	mux.HandleFunc("/", h.HandleRoot)
	return mux
}
