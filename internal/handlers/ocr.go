package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/ocr-api/internal/engine"
	"github.com/lehigh-university-libraries/ocr-api/internal/models"
	"github.com/lehigh-university-libraries/ocr-api/internal/services/ocr"
)

// HandleOCR serves /ocr and /v1/ocr: base64 image in, generic response out.
func (h *Handler) HandleOCR(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireEngine(w) {
		return
	}

	req := models.NewOCRRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeValidationError(w, []map[string]any{fieldError("body", "", "invalid JSON: "+err.Error())})
		return
	}
	if req.Image == "" {
		h.writeValidationError(w, []map[string]any{fieldError("body", "image", "field required")})
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	outcome, err := h.svc.ProcessBase64(ctx, req.Image, ocr.OptionsFromRequest(req))
	if err != nil {
		h.writePipelineError(w, "OCR processing", err)
		return
	}
	h.writeJSON(w, ocr.AdaptGeneric(outcome))
}

// HandlePaddleOCR serves the PaddleOCR-compatible interface.
func (h *Handler) HandlePaddleOCR(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireEngine(w) {
		return
	}

	req := models.NewPaddleOCRRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeValidationError(w, []map[string]any{fieldError("body", "", "invalid JSON: "+err.Error())})
		return
	}
	if req.Image == "" {
		h.writeValidationError(w, []map[string]any{fieldError("body", "image", "field required")})
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	outcome, err := h.svc.ProcessBase64(ctx, req.Image, ocr.OptionsFromPaddle(req))
	if err != nil {
		h.writePipelineError(w, "OCR processing", err)
		return
	}
	h.writeJSON(w, ocr.AdaptPaddle(outcome))
}

// HandleEasyOCR serves the EasyOCR-compatible interface.
func (h *Handler) HandleEasyOCR(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireEngine(w) {
		return
	}

	req := models.NewEasyOCRRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeValidationError(w, []map[string]any{fieldError("body", "", "invalid JSON: "+err.Error())})
		return
	}
	if req.Image == "" {
		h.writeValidationError(w, []map[string]any{fieldError("body", "image", "field required")})
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	outcome, err := h.svc.ProcessBase64(ctx, req.Image, ocr.OptionsFromEasyOCR(req))
	if err != nil {
		h.writePipelineError(w, "OCR processing", err)
		return
	}
	h.writeJSON(w, ocr.AdaptEasyOCR(outcome))
}

// HandleBinaryOCR serves /binary_ocr: a raw BGR buffer plus its declared
// dimensions, multipart-encoded, with default options.
func (h *Handler) HandleBinaryOCR(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireEngine(w) {
		return
	}

	buf, height, width, ok := h.readRawUpload(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	outcome, err := h.svc.ProcessRaw(ctx, buf, height, width, engine.DefaultOptions())
	if err != nil {
		h.writePipelineError(w, "Binary OCR processing", err)
		return
	}
	h.writeJSON(w, ocr.AdaptGeneric(outcome))
}

// HandleFastOCR serves /fast_ocr: the binary transport plus the full
// option set as form fields.
func (h *Handler) HandleFastOCR(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireEngine(w) {
		return
	}

	buf, height, width, ok := h.readRawUpload(w, r)
	if !ok {
		return
	}
	opts := optionsFromForm(r)

	ctx, cancel := h.requestContext(r)
	defer cancel()

	outcome, err := h.svc.ProcessRaw(ctx, buf, height, width, opts)
	if err != nil {
		h.writePipelineError(w, "Fast OCR processing", err)
		return
	}
	h.writeJSON(w, ocr.AdaptGeneric(outcome))
}

// readRawUpload pulls the image_data part and the height/width fields out
// of a multipart body.
func (h *Handler) readRawUpload(w http.ResponseWriter, r *http.Request) (buf []byte, height, width int, ok bool) {
	file, _, err := r.FormFile("image_data")
	if err != nil {
		h.writeValidationError(w, []map[string]any{fieldError("form", "image_data", "field required")})
		return nil, 0, 0, false
	}
	defer file.Close()

	var fieldErrors []map[string]any
	height, err = strconv.Atoi(r.FormValue("height"))
	if err != nil {
		fieldErrors = append(fieldErrors, fieldError("form", "height", "value is not a valid integer"))
	}
	width, err = strconv.Atoi(r.FormValue("width"))
	if err != nil {
		fieldErrors = append(fieldErrors, fieldError("form", "width", "value is not a valid integer"))
	}
	if len(fieldErrors) > 0 {
		h.writeValidationError(w, fieldErrors)
		return nil, 0, 0, false
	}

	buf, err = io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusInternalServerError)
		return nil, 0, 0, false
	}

	slog.Info("File read complete", "size", fmt.Sprintf("%.2fMB", float64(len(buf))/(1024*1024)))
	return buf, height, width, true
}

// optionsFromForm parses the full option set from form fields, keeping
// engine defaults for absent or unparsable values.
func optionsFromForm(r *http.Request) engine.Options {
	opts := engine.DefaultOptions()
	if v := r.FormValue("use_det"); v != "" {
		opts.UseDet = v == "true" || v == "True" || v == "1"
	}
	if v := r.FormValue("use_cls"); v != "" {
		opts.UseCls = v == "true" || v == "True" || v == "1"
	}
	if v := r.FormValue("use_rec"); v != "" {
		opts.UseRec = v == "true" || v == "True" || v == "1"
	}
	if v := r.FormValue("text_score"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.TextScore = f
		}
	}
	if v := r.FormValue("box_thresh"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.BoxThresh = f
		}
	}
	if v := r.FormValue("unclip_ratio"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.UnclipRatio = f
		}
	}
	if v := r.FormValue("return_word_box"); v != "" {
		opts.ReturnWordBox = v == "true" || v == "True" || v == "1"
	}
	return opts
}
