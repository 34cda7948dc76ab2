package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: byte(x * 40), G: byte(y * 40), B: 200, A: 255})
		}
	}
	return encodePNG(t, img)
}

func TestDecodeBase64PreservesDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		prefix        string
	}{
		{"plain base64", 3, 2, ""},
		{"data URI prefix", 5, 4, "data:image/png;base64,"},
		{"single pixel", 1, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.prefix + base64.StdEncoding.EncodeToString(testImage(t, tt.width, tt.height))
			img, err := DecodeBase64(encoded)
			if err != nil {
				t.Fatal(err)
			}
			if img.Width != tt.width || img.Height != tt.height {
				t.Errorf("dimensions = %dx%d; want %dx%d", img.Width, img.Height, tt.width, tt.height)
			}
			if len(img.Pix) != tt.width*tt.height*3 {
				t.Errorf("buffer length = %d; want %d", len(img.Pix), tt.width*tt.height*3)
			}
		})
	}
}

func TestDecodeBase64ChannelOrder(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	encoded := base64.StdEncoding.EncodeToString(encodePNG(t, src))

	img, err := DecodeBase64(encoded)
	if err != nil {
		t.Fatal(err)
	}
	b, g, r := img.At(0, 0)
	if b != 30 || g != 20 || r != 10 {
		t.Errorf("BGR at (0,0) = (%d,%d,%d); want (30,20,10)", b, g, r)
	}
}

func TestDecodeBase64Failures(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"base64 of garbage", base64.StdEncoding.EncodeToString([]byte("not an image"))},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBase64(tt.encoded)
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}

func TestFromRaw(t *testing.T) {
	buf := make([]byte, 4*3*3)
	img, err := FromRaw(buf, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 4 || img.Height != 3 {
		t.Errorf("dimensions = %dx%d; want 4x3", img.Width, img.Height)
	}
}

func TestFromRawRejectsMismatchedBuffer(t *testing.T) {
	tests := []struct {
		name          string
		bufLen        int
		height, width int
	}{
		{"short buffer", 10, 4, 4},
		{"long buffer", 100, 4, 4},
		{"divides evenly into wrong shape", 4 * 6 * 3, 4, 4},
		{"zero height", 12, 0, 4},
		{"negative width", 12, 4, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRaw(make([]byte, tt.bufLen), tt.height, tt.width)
			if !errors.Is(err, ErrBufferSizeMismatch) {
				t.Errorf("expected ErrBufferSizeMismatch, got %v", err)
			}
		})
	}
}

func TestToRGBARoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	src.SetRGBA(1, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	img := FromImage(src)
	back := img.ToRGBA()

	for _, p := range []struct{ x, y int }{{0, 0}, {1, 1}, {0, 1}} {
		if got, want := back.RGBAAt(p.x, p.y), src.RGBAAt(p.x, p.y); got != want {
			t.Errorf("pixel (%d,%d) = %v; want %v", p.x, p.y, got, want)
		}
	}
}
