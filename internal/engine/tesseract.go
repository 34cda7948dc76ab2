package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"sync/atomic"

	gosseract "github.com/otiai10/gosseract/v2"

	"github.com/lehigh-university-libraries/ocr-api/internal/imaging"
)

// TesseractConfig holds engine construction settings.
type TesseractConfig struct {
	// Concurrency bounds the number of simultaneous native inference
	// calls. Tesseract clients are created per invocation, but native
	// inference is still memory-hungry, so concurrent calls are limited
	// rather than assumed safe at any width.
	Concurrency int
	// Languages are the trained-data languages passed to the runtime.
	// Empty means the runtime default (eng).
	Languages []string
}

// Tesseract is the gosseract-backed implementation of Engine. Each Run
// creates a short-lived client; a semaphore bounds concurrent inference.
type Tesseract struct {
	sem     chan struct{}
	langs   []string
	version string
	closed  atomic.Bool
}

// NewTesseract loads the engine handle, verifying the native runtime is
// usable before serving traffic.
func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	client := gosseract.NewClient()
	version := client.Version()
	if err := client.Close(); err != nil {
		return nil, fmt.Errorf("failed to initialize tesseract client: %w", err)
	}
	if version == "" {
		return nil, fmt.Errorf("tesseract runtime not available")
	}

	return &Tesseract{
		sem:     make(chan struct{}, cfg.Concurrency),
		langs:   cfg.Languages,
		version: version,
	}, nil
}

// Warmup runs a dummy inference on the configured sample image to trigger
// lazy initialization costs up front. Failure is reported to the caller
// but is non-fatal by contract.
func (t *Tesseract) Warmup(ctx context.Context, imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read warmup image: %w", err)
	}
	img, err := imaging.DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("failed to decode warmup image: %w", err)
	}
	_, err = t.Run(ctx, img, DefaultOptions())
	return err
}

func (t *Tesseract) Model() string {
	return "tesseract-" + t.version
}

// Providers reports the trained-data languages the local runtime can
// execute with, the closest analogue to a remote runtime's provider list.
func (t *Tesseract) Providers() []string {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		slog.Warn("Failed to list tesseract languages", "error", err)
		return nil
	}
	return langs
}

func (t *Tesseract) Close() error {
	t.closed.Store(true)
	return nil
}

// Run performs one inference call. The blocking native call runs in its
// own goroutine so a caller deadline is honored even if the runtime hangs.
func (t *Tesseract) Run(ctx context.Context, img *imaging.Image, opts Options) (RawResult, error) {
	if t.closed.Load() {
		return nil, ErrNotReady
	}

	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	type outcome struct {
		raw RawResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() { <-t.sem }()
		raw, err := t.infer(img, opts)
		done <- outcome{raw, err}
	}()

	select {
	case out := <-done:
		return out.raw, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Tesseract) infer(img *imaging.Image, opts Options) (RawResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.ToRGBA()); err != nil {
		return nil, fmt.Errorf("failed to encode image for inference: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	if len(t.langs) > 0 {
		if err := client.SetLanguage(t.langs...); err != nil {
			return nil, fmt.Errorf("failed to set languages: %w", err)
		}
	}

	// Detection off means the whole image is treated as one text block;
	// classification toggles orientation-and-script detection.
	psm := gosseract.PSM_AUTO
	if opts.UseCls {
		psm = gosseract.PSM_AUTO_OSD
	}
	if !opts.UseDet {
		psm = gosseract.PSM_SINGLE_BLOCK
	}
	if err := client.SetPageSegMode(psm); err != nil {
		return nil, fmt.Errorf("failed to set segmentation mode: %w", err)
	}

	lines, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	var words []gosseract.BoundingBox
	if opts.ReturnWordBox {
		words, err = client.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			slog.Warn("Word box pass failed, continuing without word boxes", "error", err)
			words = nil
		}
	}

	triples := make([]any, 0, len(lines))
	for _, line := range lines {
		conf := line.Confidence / 100.0
		if conf < opts.BoxThresh {
			continue
		}
		if opts.UseRec && conf < opts.TextScore {
			continue
		}

		rect := unclip(line.Box, opts.UnclipRatio, img.Width, img.Height)
		text := line.Word
		if !opts.UseRec {
			text = ""
		}

		triple := []any{quad(rect), text, conf}
		if opts.ReturnWordBox {
			triple = append(triple, wordBoxesIn(words, line.Box))
		}
		triples = append(triples, triple)
	}

	if len(triples) == 0 {
		return RawResult{nil}, nil
	}
	return RawResult{triples}, nil
}

// unclip grows a detected box using the DB expansion formula
// (area * ratio / perimeter), clamped to the image bounds.
func unclip(r image.Rectangle, ratio float64, width, height int) image.Rectangle {
	if ratio <= 1.0 {
		return r
	}
	w, h := float64(r.Dx()), float64(r.Dy())
	perimeter := 2 * (w + h)
	if perimeter == 0 {
		return r
	}
	d := int(w * h * (ratio - 1.0) / perimeter)
	out := image.Rect(r.Min.X-d, r.Min.Y-d, r.Max.X+d, r.Max.Y+d)
	return out.Intersect(image.Rect(0, 0, width, height))
}

// quad converts an axis-aligned rectangle into the four-corner clockwise
// bbox shape the wire formats use.
func quad(r image.Rectangle) [][]float64 {
	return [][]float64{
		{float64(r.Min.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Max.Y)},
		{float64(r.Min.X), float64(r.Max.Y)},
	}
}

func wordBoxesIn(words []gosseract.BoundingBox, line image.Rectangle) [][][]float64 {
	var boxes [][][]float64
	for _, w := range words {
		if w.Box.Overlaps(line) {
			boxes = append(boxes, quad(w.Box))
		}
	}
	return boxes
}
