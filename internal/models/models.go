package models

// ImageSize reports the pixel dimensions of a processed image.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// OCRRequest is the standard request body for /ocr and /v1/ocr.
type OCRRequest struct {
	Image         string  `json:"image"`
	UseDet        bool    `json:"use_det"`
	UseCls        bool    `json:"use_cls"`
	UseRec        bool    `json:"use_rec"`
	TextScore     float64 `json:"text_score"`
	BoxThresh     float64 `json:"box_thresh"`
	UnclipRatio   float64 `json:"unclip_ratio"`
	ReturnWordBox bool    `json:"return_word_box"`
}

// NewOCRRequest returns a request pre-populated with defaults, so decoding
// a JSON body over it leaves absent fields at their defaults.
func NewOCRRequest() OCRRequest {
	return OCRRequest{
		UseDet:      true,
		UseCls:      true,
		UseRec:      true,
		TextScore:   0.5,
		BoxThresh:   0.5,
		UnclipRatio: 1.6,
	}
}

// OCRResult is one recognized text region.
type OCRResult struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	BBox       [][]float64 `json:"bbox"`
}

// OCRResponse is the generic response envelope.
type OCRResponse struct {
	Success        bool        `json:"success"`
	Results        []OCRResult `json:"results"`
	ProcessingTime float64     `json:"processing_time"`
	ImageSize      ImageSize   `json:"image_size"`
}

// EasyOCRResponse carries the EasyOCR-compatible shape: each result is a
// positional [bbox, text, confidence] triple rather than named fields.
type EasyOCRResponse struct {
	Success        bool      `json:"success"`
	Results        [][]any   `json:"results"`
	ProcessingTime float64   `json:"processing_time"`
	ImageSize      ImageSize `json:"image_size"`
}

// OCRPDFResult carries the outcome for one image extracted from a PDF page.
type OCRPDFResult struct {
	Page           int         `json:"page"`
	Index          int         `json:"index"`
	Result         []OCRResult `json:"result"`
	BBoxImage      []float64   `json:"bbox_image"`
	ProcessingTime float64     `json:"processing_time"`
	ImageSize      ImageSize   `json:"image_size"`
}

// OCRPDFResponse wraps the per-image PDF outcomes.
type OCRPDFResponse struct {
	Success bool           `json:"success"`
	Results []OCRPDFResult `json:"results"`
}

// PaddleOCRRequest mirrors the PaddleOCR client request shape. Only
// use_angle_cls, det_db_box_thresh and det_db_unclip_ratio affect
// processing; the remaining knobs are accepted for wire compatibility and
// ignored.
type PaddleOCRRequest struct {
	Image           string  `json:"image"`
	UseAngleCls     bool    `json:"use_angle_cls"`
	Lang            string  `json:"lang"`               // ignored for compatibility
	DetDBThresh     float64 `json:"det_db_thresh"`      // ignored for compatibility
	DetDBBoxThresh  float64 `json:"det_db_box_thresh"`
	DetDBUnclip     float64 `json:"det_db_unclip_ratio"`
	RecCharDictPath string  `json:"rec_char_dict_path"` // ignored for compatibility
	RecBatchNum     int     `json:"rec_batch_num"`      // ignored for compatibility
	ClsBatchNum     int     `json:"cls_batch_num"`      // ignored for compatibility
	ClsThresh       float64 `json:"cls_thresh"`         // ignored for compatibility
}

// NewPaddleOCRRequest returns a PaddleOCR request with PaddleOCR defaults.
func NewPaddleOCRRequest() PaddleOCRRequest {
	return PaddleOCRRequest{
		UseAngleCls:    true,
		Lang:           "ch",
		DetDBThresh:    0.3,
		DetDBBoxThresh: 0.5,
		DetDBUnclip:    1.6,
		RecBatchNum:    6,
		ClsBatchNum:    6,
		ClsThresh:      0.9,
	}
}

// EasyOCRRequest mirrors the EasyOCR readtext signature. Only
// text_threshold affects processing; detection, classification and
// recognition are always forced on. Everything else is accepted for wire
// compatibility and ignored.
type EasyOCRRequest struct {
	Image           string   `json:"image"`
	Languages       []string `json:"languages"`               // ignored for compatibility
	GPU             bool     `json:"gpu"`                     // ignored for compatibility
	ModelStorageDir string   `json:"model_storage_directory"` // ignored for compatibility
	DownloadEnabled bool     `json:"download_enabled"`        // ignored for compatibility
	Paragraph       bool     `json:"paragraph"`               // ignored for compatibility
	ContrastThs     float64  `json:"contrast_ths"`            // ignored for compatibility
	AdjustContrast  float64  `json:"adjust_contrast"`         // ignored for compatibility
	TextThreshold   float64  `json:"text_threshold"`
	LinkThreshold   float64  `json:"link_threshold"` // ignored for compatibility
	LowText         float64  `json:"low_text"`       // ignored for compatibility
	CanvasSize      int      `json:"canvas_size"`    // ignored for compatibility
	MagRatio        float64  `json:"mag_ratio"`      // ignored for compatibility
}

// NewEasyOCRRequest returns an EasyOCR request with EasyOCR defaults.
func NewEasyOCRRequest() EasyOCRRequest {
	return EasyOCRRequest{
		Languages:       []string{"ch_sim", "en"},
		GPU:             true,
		DownloadEnabled: true,
		ContrastThs:     0.1,
		AdjustContrast:  0.5,
		TextThreshold:   0.7,
		LinkThreshold:   0.4,
		LowText:         0.4,
		CanvasSize:      2560,
		MagRatio:        1.0,
	}
}
