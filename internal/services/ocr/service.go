// Package ocr is the request pipeline: decode, invoke, normalize, adapt.
// It owns wall-clock timing and keeps engine errors from crossing the
// HTTP boundary untyped.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/ocr-api/internal/engine"
	"github.com/lehigh-university-libraries/ocr-api/internal/imaging"
	"github.com/lehigh-university-libraries/ocr-api/internal/models"
	"github.com/lehigh-university-libraries/ocr-api/internal/pdf"
)

// Outcome is the canonical per-image result every response schema is
// projected from.
type Outcome struct {
	Results []models.OCRResult
	Elapsed time.Duration
	Size    models.ImageSize
}

type Service struct {
	engine engine.Engine
}

// NewService wires the pipeline to an engine handle. The handle is
// injected so tests can substitute a double.
func NewService(e engine.Engine) *Service {
	return &Service{engine: e}
}

// ProcessBase64 runs the pipeline on a base64-encoded image, optionally
// carrying a data-URI prefix.
func (s *Service) ProcessBase64(ctx context.Context, imageBase64 string, opts engine.Options) (*Outcome, error) {
	start := time.Now()
	img, err := imaging.DecodeBase64(imageBase64)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, img, opts, start)
}

// ProcessBytes runs the pipeline on an encoded image container
// (PNG/JPEG/BMP/...). Used by file uploads and PDF-extracted images.
func (s *Service) ProcessBytes(ctx context.Context, data []byte, opts engine.Options) (*Outcome, error) {
	start := time.Now()
	img, err := imaging.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, img, opts, start)
}

// ProcessRaw runs the pipeline on a raw height×width×3 BGR buffer.
func (s *Service) ProcessRaw(ctx context.Context, buf []byte, height, width int, opts engine.Options) (*Outcome, error) {
	start := time.Now()
	img, err := imaging.FromRaw(buf, height, width)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, img, opts, start)
}

func (s *Service) run(ctx context.Context, img *imaging.Image, opts engine.Options, start time.Time) (*Outcome, error) {
	raw, err := s.engine.Run(ctx, img, opts)
	if err != nil {
		return nil, err
	}

	results, droppedCount := Normalize(raw)
	elapsed := time.Since(start)

	if droppedCount > 0 {
		slog.Warn("Dropped malformed detection records", "dropped", droppedCount)
	}
	slog.Info("OCR completed",
		"elapsed", elapsed.Round(time.Millisecond),
		"image_size", fmt.Sprintf("%dx%d", img.Width, img.Height),
		"text_count", len(results))

	return &Outcome{
		Results: results,
		Elapsed: elapsed,
		Size:    models.ImageSize{Width: img.Width, Height: img.Height},
	}, nil
}

// ProcessPDF extracts every embedded image from the document and runs each
// through the pipeline, tagging outcomes with their page placement.
// Unextractable images were already skipped by the extractor; an OCR
// failure on an extracted image fails the request.
func (s *Service) ProcessPDF(ctx context.Context, pdfBytes []byte, opts engine.Options) ([]models.OCRPDFResult, error) {
	images, err := pdf.ExtractImages(pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("PDF extraction failed: %w", err)
	}

	results := []models.OCRPDFResult{}
	for _, img := range images {
		outcome, err := s.ProcessBytes(ctx, img.Data, opts)
		if err != nil {
			return nil, fmt.Errorf("OCR failed on page %d image %d: %w", img.Page, img.Index, err)
		}
		results = append(results, models.OCRPDFResult{
			Page:           img.Page,
			Index:          img.Index,
			Result:         outcome.Results,
			BBoxImage:      img.BBox,
			ProcessingTime: roundSeconds(outcome.Elapsed),
			ImageSize:      outcome.Size,
		})
	}
	return results, nil
}
