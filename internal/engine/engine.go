// Package engine defines the contract between the request pipeline and the
// OCR model runtime. The runtime is treated as an opaque collaborator: it
// takes a canonical pixel buffer plus an options bundle and hands back a
// loosely typed nested result that the normalizer flattens.
package engine

import (
	"context"
	"errors"

	"github.com/lehigh-university-libraries/ocr-api/internal/imaging"
)

// ErrNotReady is returned when inference is requested before the engine
// handle has been initialized.
var ErrNotReady = errors.New("OCR model not initialized")

// Options is the per-request configuration bundle forwarded to the engine.
// Values are passed through verbatim; out-of-range values are the engine's
// concern.
type Options struct {
	UseDet        bool
	UseCls        bool
	UseRec        bool
	TextScore     float64
	BoxThresh     float64
	UnclipRatio   float64
	ReturnWordBox bool
}

// DefaultOptions returns the engine defaults used when a request omits its
// option fields.
func DefaultOptions() Options {
	return Options{
		UseDet:      true,
		UseCls:      true,
		UseRec:      true,
		TextScore:   0.5,
		BoxThresh:   0.5,
		UnclipRatio: 1.6,
	}
}

// RawResult is the engine's untyped nested output. When non-empty, the
// first element holds the detection list: a sequence of triples
// [bbox, text, confidence], with an optional fourth word-box element when
// ReturnWordBox was set. The shape is deliberately loose; the normalizer
// owns the flattening and tolerates anything.
type RawResult []any

// Engine is the long-lived OCR model handle. Run must be safe for
// concurrent use; implementations that wrap a runtime without that
// guarantee serialize internally.
type Engine interface {
	// Run performs one inference call. It honors ctx cancellation and
	// returns ErrNotReady if the handle has been closed or never loaded.
	Run(ctx context.Context, img *imaging.Image, opts Options) (RawResult, error)

	// Model identifies the loaded model for health reporting.
	Model() string

	// Providers lists the runtime's execution providers for health
	// reporting.
	Providers() []string

	// Close releases the model runtime. Run calls after Close fail with
	// ErrNotReady.
	Close() error
}
