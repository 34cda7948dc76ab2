package ocr

import (
	"testing"

	"github.com/lehigh-university-libraries/ocr-api/internal/engine"
)

func TestNormalizeEmptyShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  engine.RawResult
	}{
		{"nil result", nil},
		{"zero-length result", engine.RawResult{}},
		{"nil detection list", engine.RawResult{nil}},
		{"empty detection list", engine.RawResult{[]any{}}},
		{"detection list of wrong type", engine.RawResult{"bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, dropped := Normalize(tt.raw)
			if results == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(results) != 0 {
				t.Errorf("expected no results, got %d", len(results))
			}
			if dropped != 0 {
				t.Errorf("expected no dropped records, got %d", dropped)
			}
		})
	}
}

func TestNormalizeValidTriples(t *testing.T) {
	bbox := [][]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	raw := engine.RawResult{[]any{
		[]any{bbox, "hello", 0.97},
		[]any{bbox, "world", 0.42},
	}}

	results, dropped := Normalize(raw)
	if dropped != 0 {
		t.Errorf("expected no dropped records, got %d", dropped)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "hello" || results[0].Confidence != 0.97 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if len(results[0].BBox) != 4 || results[0].BBox[2][0] != 10 {
		t.Errorf("unexpected bbox: %v", results[0].BBox)
	}
	if results[1].Text != "world" {
		t.Errorf("unexpected second result: %+v", results[1])
	}
}

func TestNormalizeDropsMalformedTriples(t *testing.T) {
	bbox := [][]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	raw := engine.RawResult{[]any{
		[]any{bbox, "keep me", 0.9},
		[]any{bbox, "too short"},
		[]any{bbox, 42, 0.5},
		[]any{bbox, "bad confidence", "high"},
		"not a triple at all",
		[]any{bbox, "also kept", 0.8},
	}}

	results, dropped := Normalize(raw)
	if dropped != 4 {
		t.Errorf("expected 4 dropped records, got %d", dropped)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "keep me" || results[1].Text != "also kept" {
		t.Errorf("unexpected surviving results: %+v", results)
	}
}

func TestNormalizeCoercesConfidence(t *testing.T) {
	tests := []struct {
		name string
		conf any
		want float64
	}{
		{"float64", 0.5, 0.5},
		{"float32", float32(0.25), 0.25},
		{"int", 1, 1.0},
		{"int64", int64(0), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := engine.RawResult{[]any{[]any{nil, "x", tt.conf}}}
			results, dropped := Normalize(raw)
			if dropped != 0 || len(results) != 1 {
				t.Fatalf("expected 1 result, got %d (dropped %d)", len(results), dropped)
			}
			if results[0].Confidence != tt.want {
				t.Errorf("confidence = %v; want %v", results[0].Confidence, tt.want)
			}
		})
	}
}

func TestNormalizeCoercesLooseBBox(t *testing.T) {
	raw := engine.RawResult{[]any{
		[]any{[]any{[]any{0, 0}, []any{10.0, 0}, []any{10, 10}, []any{0, 10.0}}, "x", 0.9},
	}}
	results, _ := Normalize(raw)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	want := [][]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	got := results[0].BBox
	if len(got) != len(want) {
		t.Fatalf("bbox length = %d; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i][0] != want[i][0] || got[i][1] != want[i][1] {
			t.Errorf("bbox[%d] = %v; want %v", i, got[i], want[i])
		}
	}
}
