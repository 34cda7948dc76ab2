package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/ocr-api/internal/config"
	"github.com/lehigh-university-libraries/ocr-api/internal/engine"
	"github.com/lehigh-university-libraries/ocr-api/internal/imaging"
	"github.com/lehigh-university-libraries/ocr-api/internal/models"
	"github.com/lehigh-university-libraries/ocr-api/internal/services/ocr"
)

// fakeEngine is an Engine double returning a canned raw result.
type fakeEngine struct {
	raw      engine.RawResult
	err      error
	lastOpts engine.Options
}

func (f *fakeEngine) Run(ctx context.Context, img *imaging.Image, opts engine.Options) (engine.RawResult, error) {
	f.lastOpts = opts
	return f.raw, f.err
}

func (f *fakeEngine) Model() string       { return "fake-model" }
func (f *fakeEngine) Providers() []string { return []string{"test"} }
func (f *fakeEngine) Close() error        { return nil }

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout: 5 * time.Second,
		MaxFileSize:    10 * 1024 * 1024,
		MaxPDFSize:     10 * 1024 * 1024 * 1024,
	}
}

func newTestHandler(eng engine.Engine) *Handler {
	return New(ocr.NewService(eng), eng, testConfig())
}

func sampleRaw() engine.RawResult {
	return engine.RawResult{[]any{
		[]any{[][]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, "A", 0.9},
	}}
}

func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestHealthBeforeAndAfterInit(t *testing.T) {
	// No engine handle yet: unavailable.
	h := newTestHandler(nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before init = %d; want 503", rec.Code)
	}

	// Engine loaded: healthy with model identity.
	h = newTestHandler(&fakeEngine{raw: sampleRaw()})
	rec = httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status after init = %d; want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["model"] != "fake-model" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestRootAndNotFound(t *testing.T) {
	h := newTestHandler(&fakeEngine{})
	mux := h.Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("root status = %d; want 200", rec.Code)
	}
	var meta map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatal(err)
	}
	if meta["version"] != serviceVersion {
		t.Errorf("unexpected metadata: %v", meta)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/no/such/path", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d; want 404", rec.Code)
	}
	var nf map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &nf); err != nil {
		t.Fatal(err)
	}
	if _, ok := nf["available_endpoints"]; !ok {
		t.Errorf("404 body missing endpoint list: %v", nf)
	}
}

func TestHandleOCR(t *testing.T) {
	eng := &fakeEngine{raw: sampleRaw()}
	h := newTestHandler(eng)

	body, _ := json.Marshal(map[string]any{"image": pngBase64(t), "text_score": 0.3})
	rec := httptest.NewRecorder()
	h.HandleOCR(rec, httptest.NewRequest("POST", "/ocr", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp models.OCRResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Results) != 1 || resp.Results[0].Text != "A" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.ImageSize.Width != 4 || resp.ImageSize.Height != 4 {
		t.Errorf("image_size = %+v; want 4x4", resp.ImageSize)
	}

	// Explicit fields override defaults; absent ones keep them.
	if eng.lastOpts.TextScore != 0.3 {
		t.Errorf("TextScore = %v; want 0.3", eng.lastOpts.TextScore)
	}
	if eng.lastOpts.BoxThresh != 0.5 || !eng.lastOpts.UseDet {
		t.Errorf("defaults not preserved: %+v", eng.lastOpts)
	}
}

func TestHandleOCRValidation(t *testing.T) {
	h := newTestHandler(&fakeEngine{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing image", `{}`, http.StatusUnprocessableEntity},
		{"invalid JSON", `{"image": `, http.StatusUnprocessableEntity},
		{"bad base64", `{"image": "!!!"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleOCR(rec, httptest.NewRequest("POST", "/ocr", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleOCRMethodNotAllowed(t *testing.T) {
	h := newTestHandler(&fakeEngine{})
	rec := httptest.NewRecorder()
	h.HandleOCR(rec, httptest.NewRequest("GET", "/ocr", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d; want 405", rec.Code)
	}
}

func TestHandleOCRWithoutEngine(t *testing.T) {
	h := newTestHandler(nil)
	body, _ := json.Marshal(map[string]any{"image": pngBase64(t)})
	rec := httptest.NewRecorder()
	h.HandleOCR(rec, httptest.NewRequest("POST", "/ocr", bytes.NewReader(body)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", rec.Code)
	}
}

func TestHandlePaddleOCRMapsOptions(t *testing.T) {
	eng := &fakeEngine{raw: sampleRaw()}
	h := newTestHandler(eng)

	body, _ := json.Marshal(map[string]any{
		"image":               pngBase64(t),
		"use_angle_cls":       false,
		"det_db_box_thresh":   0.8,
		"det_db_unclip_ratio": 2.2,
		"rec_batch_num":       99,
	})
	rec := httptest.NewRecorder()
	h.HandlePaddleOCR(rec, httptest.NewRequest("POST", "/paddleocr", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	if eng.lastOpts.UseCls || eng.lastOpts.BoxThresh != 0.8 || eng.lastOpts.UnclipRatio != 2.2 {
		t.Errorf("paddle options not mapped: %+v", eng.lastOpts)
	}
}

func TestHandleEasyOCRPositionalShape(t *testing.T) {
	h := newTestHandler(&fakeEngine{raw: sampleRaw()})

	body, _ := json.Marshal(map[string]any{"image": pngBase64(t), "text_threshold": 0.6})
	rec := httptest.NewRecorder()
	h.HandleEasyOCR(rec, httptest.NewRequest("POST", "/easyocr", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool    `json:"success"`
		Results [][]any `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || len(resp.Results[0]) != 3 {
		t.Fatalf("unexpected results shape: %v", resp.Results)
	}
	if resp.Results[0][1] != "A" || resp.Results[0][2] != 0.9 {
		t.Errorf("positional triple = %v", resp.Results[0])
	}
}

func multipartBody(t *testing.T, fileField, filename, contentType string, fileData []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(fileData); err != nil {
		t.Fatal(err)
	}

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandleUploadRejectsDisallowedType(t *testing.T) {
	h := newTestHandler(&fakeEngine{raw: sampleRaw()})

	body, contentType := multipartBody(t, "file", "archive.zip", "application/zip", []byte("PK..."), nil)
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestHandleUploadAcceptsImage(t *testing.T) {
	h := newTestHandler(&fakeEngine{raw: sampleRaw()})

	imgData, err := base64.StdEncoding.DecodeString(pngBase64(t))
	if err != nil {
		t.Fatal(err)
	}
	body, contentType := multipartBody(t, "file", "scan.png", "image/png", imgData,
		map[string]string{"use_det": "true", "text_score": "0.4"})
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp models.OCRResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Results) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleBinaryOCRMismatchedBuffer(t *testing.T) {
	h := newTestHandler(&fakeEngine{raw: sampleRaw()})

	// 10 bytes cannot be a 4x4x3 buffer.
	body, contentType := multipartBody(t, "image_data", "frame.raw", "application/octet-stream",
		make([]byte, 10), map[string]string{"height": "4", "width": "4"})
	req := httptest.NewRequest("POST", "/binary_ocr", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleBinaryOCR(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleBinaryOCRValidBuffer(t *testing.T) {
	h := newTestHandler(&fakeEngine{raw: sampleRaw()})

	body, contentType := multipartBody(t, "image_data", "frame.raw", "application/octet-stream",
		make([]byte, 4*4*3), map[string]string{"height": "4", "width": "4"})
	req := httptest.NewRequest("POST", "/binary_ocr", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleBinaryOCR(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp models.OCRResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ImageSize.Width != 4 || resp.ImageSize.Height != 4 {
		t.Errorf("image_size = %+v; want 4x4", resp.ImageSize)
	}
}

func TestHandleFastOCRFormOptions(t *testing.T) {
	eng := &fakeEngine{raw: sampleRaw()}
	h := newTestHandler(eng)

	body, contentType := multipartBody(t, "image_data", "frame.raw", "application/octet-stream",
		make([]byte, 2*2*3), map[string]string{
			"height":          "2",
			"width":           "2",
			"use_cls":         "false",
			"unclip_ratio":    "2.5",
			"return_word_box": "true",
		})
	req := httptest.NewRequest("POST", "/fast_ocr", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleFastOCR(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	if eng.lastOpts.UseCls || eng.lastOpts.UnclipRatio != 2.5 || !eng.lastOpts.ReturnWordBox {
		t.Errorf("form options not applied: %+v", eng.lastOpts)
	}
	if !eng.lastOpts.UseDet || eng.lastOpts.TextScore != 0.5 {
		t.Errorf("defaults not preserved: %+v", eng.lastOpts)
	}
}

func TestHandleFastOCRMissingDimensions(t *testing.T) {
	h := newTestHandler(&fakeEngine{raw: sampleRaw()})

	body, contentType := multipartBody(t, "image_data", "frame.raw", "application/octet-stream",
		make([]byte, 12), nil)
	req := httptest.NewRequest("POST", "/fast_ocr", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.HandleFastOCR(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d; want 422", rec.Code)
	}
}
