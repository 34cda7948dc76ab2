// Package imaging turns the service's heterogeneous image inputs into the
// canonical pixel layout the OCR engine consumes: a dense height×width×3
// buffer in BGR channel order.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned when an input cannot be decoded into a
// canonical image: bad base64, an unrecognized container, or corrupt
// pixel data.
var ErrInvalidImage = errors.New("invalid image format")

// ErrBufferSizeMismatch is returned when a raw pixel buffer does not match
// the declared height*width*3 layout.
var ErrBufferSizeMismatch = errors.New("buffer size does not match height*width*3")

// Image is a dense 3-channel pixel buffer in BGR order.
type Image struct {
	Pix    []byte
	Width  int
	Height int
}

// DecodeBase64 decodes a base64-encoded image, optionally carrying a
// data:<mime>;base64, prefix, into the canonical BGR layout. Any color mode
// the container decodes to is converted to 3-channel color.
func DecodeBase64(encoded string) (*Image, error) {
	if i := strings.IndexByte(encoded, ','); i >= 0 {
		encoded = encoded[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return FromImage(img), nil
}

// DecodeBytes decodes an encoded image container (PNG/JPEG/BMP/etc.) into
// the canonical BGR layout.
func DecodeBytes(data []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return FromImage(img), nil
}

// FromRaw interprets buf as height×width×3 BGR bytes. The length is checked
// explicitly so a mismatched buffer fails instead of being silently
// misread as pixels.
func FromRaw(buf []byte, height, width int) (*Image, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d: %w", width, height, ErrBufferSizeMismatch)
	}
	if len(buf) != height*width*3 {
		return nil, fmt.Errorf("got %d bytes for %dx%d image (want %d): %w",
			len(buf), width, height, height*width*3, ErrBufferSizeMismatch)
	}
	return &Image{Pix: buf, Width: width, Height: height}, nil
}

// FromImage converts a decoded image.Image into the canonical BGR layout.
func FromImage(img image.Image) *Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]byte, h*w*3)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pix[i] = byte(b >> 8)
			pix[i+1] = byte(g >> 8)
			pix[i+2] = byte(r >> 8)
			i += 3
		}
	}

	return &Image{Pix: pix, Width: w, Height: h}
}

// At returns the BGR bytes of the pixel at (x, y).
func (m *Image) At(x, y int) (b, g, r byte) {
	i := (y*m.Width + x) * 3
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// ToRGBA converts the canonical BGR buffer back into a standard library
// image, for engines that consume encoded containers rather than raw
// pixel buffers.
func (m *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			src := (y*m.Width + x) * 3
			dst := out.PixOffset(x, y)
			out.Pix[dst] = m.Pix[src+2]
			out.Pix[dst+1] = m.Pix[src+1]
			out.Pix[dst+2] = m.Pix[src]
			out.Pix[dst+3] = 0xff
		}
	}
	return out
}
