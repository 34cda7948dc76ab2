package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/lehigh-university-libraries/ocr-api/internal/config"
	"github.com/lehigh-university-libraries/ocr-api/internal/services/ocr"
)

// HandleUpload serves /upload: a multipart image file plus option form
// fields. The declared content-type must be on the image allow-list and
// the file must fit the configured ceiling.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireEngine(w) {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedType(contentType, config.AllowedImageTypes) {
		h.writeError(w, fmt.Sprintf(
			"File type not allowed. Allowed types: %v, this type: %s",
			config.AllowedImageTypes, contentType), http.StatusBadRequest)
		return
	}
	if header.Size > h.cfg.MaxFileSize {
		h.writeError(w, fmt.Sprintf("File too large. Max size: %d bytes", h.cfg.MaxFileSize), http.StatusBadRequest)
		return
	}

	fileData, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	outcome, err := h.svc.ProcessBytes(ctx, fileData, optionsFromForm(r))
	if err != nil {
		h.writePipelineError(w, "File OCR processing", err)
		return
	}
	h.writeJSON(w, ocr.AdaptGeneric(outcome))
}

// HandleUploadPDF serves /upload_pdf: a multipart PDF whose embedded
// images are each OCRed, producing the paginated response.
func (h *Handler) HandleUploadPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireEngine(w) {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedType(contentType, config.AllowedPDFTypes) {
		h.writeError(w, fmt.Sprintf(
			"File type not allowed. Allowed types: %v, this type: %s",
			config.AllowedPDFTypes, contentType), http.StatusBadRequest)
		return
	}
	if header.Size > h.cfg.MaxPDFSize {
		h.writeError(w, fmt.Sprintf("File too large. Max size: %d bytes", h.cfg.MaxPDFSize), http.StatusBadRequest)
		return
	}

	fileData, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	results, err := h.svc.ProcessPDF(ctx, fileData, optionsFromForm(r))
	if err != nil {
		h.writePipelineError(w, "File OCR processing", err)
		return
	}
	h.writeJSON(w, ocr.AdaptPDF(results))
}
