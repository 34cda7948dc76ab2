package ocr

import (
	"math"
	"time"

	"github.com/lehigh-university-libraries/ocr-api/internal/engine"
	"github.com/lehigh-university-libraries/ocr-api/internal/models"
)

// Adapters are pure projections: each takes the canonical outcome and
// reshapes it into one external schema, never mutating the outcome.

// AdaptGeneric projects an outcome into the standard response envelope.
func AdaptGeneric(o *Outcome) models.OCRResponse {
	return models.OCRResponse{
		Success:        true,
		Results:        o.Results,
		ProcessingTime: roundSeconds(o.Elapsed),
		ImageSize:      o.Size,
	}
}

// AdaptPaddle projects an outcome into the PaddleOCR-compatible shape.
// The records carry the same named fields as the generic schema.
func AdaptPaddle(o *Outcome) models.OCRResponse {
	results := make([]models.OCRResult, len(o.Results))
	copy(results, o.Results)
	return models.OCRResponse{
		Success:        true,
		Results:        results,
		ProcessingTime: roundSeconds(o.Elapsed),
		ImageSize:      o.Size,
	}
}

// AdaptEasyOCR projects an outcome into the EasyOCR-compatible shape,
// where each record is a positional [bbox, text, confidence] triple.
func AdaptEasyOCR(o *Outcome) models.EasyOCRResponse {
	results := make([][]any, 0, len(o.Results))
	for _, r := range o.Results {
		results = append(results, []any{r.BBox, r.Text, r.Confidence})
	}
	return models.EasyOCRResponse{
		Success:        true,
		Results:        results,
		ProcessingTime: roundSeconds(o.Elapsed),
		ImageSize:      o.Size,
	}
}

// AdaptPDF wraps per-image PDF outcomes in the paginated envelope.
func AdaptPDF(results []models.OCRPDFResult) models.OCRPDFResponse {
	return models.OCRPDFResponse{Success: true, Results: results}
}

// OptionsFromRequest maps the standard request onto engine options.
func OptionsFromRequest(req models.OCRRequest) engine.Options {
	return engine.Options{
		UseDet:        req.UseDet,
		UseCls:        req.UseCls,
		UseRec:        req.UseRec,
		TextScore:     req.TextScore,
		BoxThresh:     req.BoxThresh,
		UnclipRatio:   req.UnclipRatio,
		ReturnWordBox: req.ReturnWordBox,
	}
}

// OptionsFromPaddle maps the PaddleOCR request's effective knobs onto the
// canonical options. Only use_angle_cls, det_db_box_thresh and
// det_db_unclip_ratio are applied; the rest of the request is accepted
// for wire compatibility and ignored here.
func OptionsFromPaddle(req models.PaddleOCRRequest) engine.Options {
	opts := engine.DefaultOptions()
	opts.UseCls = req.UseAngleCls
	opts.BoxThresh = req.DetDBBoxThresh
	opts.UnclipRatio = req.DetDBUnclip
	return opts
}

// OptionsFromEasyOCR maps the EasyOCR request onto canonical options.
// Detection, classification and recognition are always forced on; only
// text_threshold carries through.
func OptionsFromEasyOCR(req models.EasyOCRRequest) engine.Options {
	opts := engine.DefaultOptions()
	opts.UseDet = true
	opts.UseCls = true
	opts.UseRec = true
	opts.TextScore = req.TextThreshold
	return opts
}

// roundSeconds converts a duration to seconds rounded to 4 decimals, the
// precision every wire format reports processing_time at.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*10000) / 10000
}
