package ocr

import (
	"github.com/lehigh-university-libraries/ocr-api/internal/engine"
	"github.com/lehigh-university-libraries/ocr-api/internal/models"
)

// Normalize flattens the engine's raw nested output into canonical
// records. An absent, empty or misshapen detection list is a valid empty
// outcome, never an error. Individual malformed triples are dropped and
// counted so callers can observe the partial-normalization rate.
func Normalize(raw engine.RawResult) (results []models.OCRResult, dropped int) {
	results = []models.OCRResult{}
	if len(raw) == 0 || raw[0] == nil {
		return results, 0
	}
	detections, ok := raw[0].([]any)
	if !ok {
		return results, 0
	}

	for _, item := range detections {
		triple, ok := item.([]any)
		if !ok || len(triple) < 3 {
			dropped++
			continue
		}
		text, ok := triple[1].(string)
		if !ok {
			dropped++
			continue
		}
		confidence, ok := toFloat(triple[2])
		if !ok {
			dropped++
			continue
		}
		results = append(results, models.OCRResult{
			Text:       text,
			Confidence: confidence,
			BBox:       toBBox(triple[0]),
		})
	}
	return results, dropped
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toBBox(v any) [][]float64 {
	switch box := v.(type) {
	case [][]float64:
		return box
	case []any:
		out := make([][]float64, 0, len(box))
		for _, p := range box {
			point, ok := toPoint(p)
			if !ok {
				continue
			}
			out = append(out, point)
		}
		return out
	}
	return nil
}

func toPoint(v any) ([]float64, bool) {
	switch p := v.(type) {
	case []float64:
		return p, true
	case []any:
		out := make([]float64, 0, len(p))
		for _, c := range p {
			f, ok := toFloat(c)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}
