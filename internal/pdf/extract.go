// Package pdf pulls embedded image XObjects out of PDF documents so each
// one can be pushed through the OCR pipeline. Extraction is resilient by
// contract: a bad image skips that image, a bad page skips that page, and
// the document as a whole is never aborted by a single failure.
package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"regexp"
	"strconv"
)

// PageImage is one embedded image extracted from a PDF page.
type PageImage struct {
	// Page is the 1-based page number.
	Page int
	// Index is the 0-based image position within the page.
	Index int
	// Data is the PNG-encoded image.
	Data []byte
	// BBox is the image placement on the page as x0, y0, x1, y1 in page
	// coordinates.
	BBox []float64
}

var (
	objRe    = regexp.MustCompile(`(?s)(\d+)\s+\d+\s+obj\b`)
	refRe    = regexp.MustCompile(`(\d+)\s+\d+\s+R`)
	xobjRe   = regexp.MustCompile(`/([^\s/<>\[\]()]+)\s+(\d+)\s+\d+\s+R`)
	filterRe = regexp.MustCompile(`/Filter\s*(\[[^\]]*\]|/\w+)`)
	// q a b c d e f cm /Name Do — image placement in a content stream.
	placeRe = regexp.MustCompile(`([\d.+-]+)\s+([\d.+-]+)\s+([\d.+-]+)\s+([\d.+-]+)\s+([\d.+-]+)\s+([\d.+-]+)\s+cm\s*(?:/\w+\s+gs\s*)?/([^\s/<>\[\]()]+)\s+Do`)
)

// ExtractImages walks the document's pages in order and returns every
// embedded image it can decode, PNG-encoded, with its page placement.
func ExtractImages(pdfBytes []byte) ([]PageImage, error) {
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF-")) {
		return nil, fmt.Errorf("not a PDF document")
	}

	doc := &document{raw: pdfBytes, objects: indexObjects(pdfBytes)}

	var images []PageImage
	for i, pageObj := range doc.pages() {
		pageNum := i + 1
		pageImages, err := doc.extractPage(pageObj, pageNum)
		if err != nil {
			slog.Error("Failed to process page, skipping", "page", pageNum, "error", err)
			continue
		}
		images = append(images, pageImages...)
	}
	return images, nil
}

type document struct {
	raw     []byte
	objects map[int][]byte
}

// indexObjects maps object numbers to their bodies. A direct scan instead
// of xref-table chasing: it tolerates documents with stale or missing
// cross-reference tables, which matters given the skip-and-continue
// contract.
func indexObjects(raw []byte) map[int][]byte {
	objects := make(map[int][]byte)
	for _, loc := range objRe.FindAllSubmatchIndex(raw, -1) {
		num, err := strconv.Atoi(string(raw[loc[2]:loc[3]]))
		if err != nil {
			continue
		}
		body := raw[loc[1]:]
		if end := bytes.Index(body, []byte("endobj")); end >= 0 {
			body = body[:end]
		}
		objects[num] = body
	}
	return objects
}

// pages returns page object bodies in document order, walking the catalog
// page tree when present and falling back to appearance order otherwise.
func (d *document) pages() [][]byte {
	if root := d.catalogPages(); len(root) > 0 {
		return root
	}
	var out [][]byte
	for _, loc := range objRe.FindAllSubmatchIndex(d.raw, -1) {
		num, _ := strconv.Atoi(string(d.raw[loc[2]:loc[3]]))
		body := d.objects[num]
		if isPage(body) {
			out = append(out, body)
		}
	}
	return out
}

func (d *document) catalogPages() [][]byte {
	var rootRef int
	trailer := bytes.LastIndex(d.raw, []byte("trailer"))
	if trailer >= 0 {
		if m := regexp.MustCompile(`/Root\s+(\d+)\s+\d+\s+R`).FindSubmatch(d.raw[trailer:]); m != nil {
			rootRef, _ = strconv.Atoi(string(m[1]))
		}
	}
	if rootRef == 0 {
		return nil
	}
	catalog := d.objects[rootRef]
	m := regexp.MustCompile(`/Pages\s+(\d+)\s+\d+\s+R`).FindSubmatch(catalog)
	if m == nil {
		return nil
	}
	pagesRef, _ := strconv.Atoi(string(m[1]))
	var out [][]byte
	d.walkPageTree(pagesRef, &out, 0)
	return out
}

func (d *document) walkPageTree(ref int, out *[][]byte, depth int) {
	if depth > 32 {
		return
	}
	body := d.objects[ref]
	if body == nil {
		return
	}
	if isPage(body) {
		*out = append(*out, body)
		return
	}
	kids := arrayEntry(body, "Kids")
	for _, m := range refRe.FindAllSubmatch(kids, -1) {
		kid, _ := strconv.Atoi(string(m[1]))
		d.walkPageTree(kid, out, depth+1)
	}
}

func isPage(body []byte) bool {
	return regexp.MustCompile(`/Type\s*/Page\b`).Match(body) &&
		!regexp.MustCompile(`/Type\s*/Pages\b`).Match(body)
}

// extractPage pulls every image XObject referenced by one page. A failure
// on one image logs a warning and moves to the next.
func (d *document) extractPage(pageObj []byte, pageNum int) ([]PageImage, error) {
	resources := d.resolveDict(pageObj, "Resources")
	if resources == nil {
		return nil, nil
	}
	xobjects := d.resolveDict(resources, "XObject")
	if xobjects == nil {
		return nil, nil
	}

	placements := d.placements(pageObj)

	var images []PageImage
	index := 0
	for _, m := range xobjRe.FindAllSubmatch(xobjects, -1) {
		name := string(m[1])
		ref, _ := strconv.Atoi(string(m[2]))

		img, err := d.decodeImageObject(ref)
		if err != nil {
			slog.Warn("Failed to extract image, skipping",
				"page", pageNum, "index", index, "name", name, "error", err)
			index++
			continue
		}
		if img == nil {
			// Not an image XObject (e.g. a form); not counted.
			continue
		}

		bbox, ok := placements[name]
		if !ok {
			b := img.Bounds()
			bbox = []float64{0, 0, float64(b.Dx()), float64(b.Dy())}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			slog.Warn("Failed to encode extracted image, skipping",
				"page", pageNum, "index", index, "error", err)
			index++
			continue
		}

		slog.Info("Extracted image", "page", pageNum, "index", index, "name", name)
		images = append(images, PageImage{
			Page:  pageNum,
			Index: index,
			Data:  buf.Bytes(),
			BBox:  bbox,
		})
		index++
	}
	return images, nil
}

// placements maps XObject names to their placement rectangles, recovered
// from "a b c d e f cm /Name Do" sequences in the page content streams.
func (d *document) placements(pageObj []byte) map[string][]float64 {
	placements := make(map[string][]float64)
	contents := arrayEntry(pageObj, "Contents")
	if contents == nil {
		if m := regexp.MustCompile(`/Contents\s+(\d+)\s+\d+\s+R`).FindSubmatch(pageObj); m != nil {
			contents = m[0]
		}
	}
	for _, m := range refRe.FindAllSubmatch(contents, -1) {
		ref, _ := strconv.Atoi(string(m[1]))
		data, _, err := d.streamData(ref)
		if err != nil {
			continue
		}
		for _, op := range placeRe.FindAllSubmatch(data, -1) {
			a, _ := strconv.ParseFloat(string(op[1]), 64)
			dd, _ := strconv.ParseFloat(string(op[4]), 64)
			e, _ := strconv.ParseFloat(string(op[5]), 64)
			f, _ := strconv.ParseFloat(string(op[6]), 64)
			placements[string(op[7])] = []float64{e, f, e + a, f + dd}
		}
	}
	return placements
}

// decodeImageObject turns an image XObject into a standard image. Returns
// (nil, nil) when the object is a non-image XObject.
func (d *document) decodeImageObject(ref int) (image.Image, error) {
	data, dict, err := d.streamData(ref)
	if err != nil {
		return nil, err
	}
	if !regexp.MustCompile(`/Subtype\s*/Image\b`).Match(dict) {
		return nil, nil
	}

	width := intEntry(dict, "Width")
	height := intEntry(dict, "Height")
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}

	for _, filter := range filters(dict) {
		switch filter {
		case "DCTDecode":
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("bad JPEG stream: %w", err)
			}
			return img, nil
		case "FlateDecode":
			// Already inflated by streamData.
		default:
			return nil, fmt.Errorf("unsupported image filter %s", filter)
		}
	}

	return rawPixels(data, width, height, nameEntry(dict, "ColorSpace"))
}

// rawPixels wraps decoded sample data in the matching image type, keyed by
// bytes per pixel with the color space as a tiebreaker.
func rawPixels(data []byte, width, height int, colorSpace string) (image.Image, error) {
	rect := image.Rect(0, 0, width, height)
	switch len(data) {
	case width * height * 3:
		out := image.NewRGBA(rect)
		for p := 0; p < width*height; p++ {
			out.Pix[p*4] = data[p*3]
			out.Pix[p*4+1] = data[p*3+1]
			out.Pix[p*4+2] = data[p*3+2]
			out.Pix[p*4+3] = 0xff
		}
		return out, nil
	case width * height:
		return &image.Gray{Pix: data, Stride: width, Rect: rect}, nil
	case width * height * 4:
		if colorSpace == "DeviceCMYK" {
			return &image.CMYK{Pix: data, Stride: width * 4, Rect: rect}, nil
		}
		return &image.RGBA{Pix: data, Stride: width * 4, Rect: rect}, nil
	}
	return nil, fmt.Errorf("unreadable pixmap: %d bytes for %dx%d", len(data), width, height)
}

// streamData returns the (inflated, when flate-compressed) stream payload
// and dictionary of an object.
func (d *document) streamData(ref int) ([]byte, []byte, error) {
	body, ok := d.objects[ref]
	if !ok {
		return nil, nil, fmt.Errorf("object %d not found", ref)
	}
	marker := bytes.Index(body, []byte("stream"))
	if marker < 0 {
		return nil, nil, fmt.Errorf("object %d has no stream", ref)
	}
	dict := body[:marker]

	data := body[marker+len("stream"):]
	data = bytes.TrimPrefix(data, []byte("\r\n"))
	data = bytes.TrimPrefix(data, []byte("\n"))
	if end := bytes.LastIndex(data, []byte("endstream")); end >= 0 {
		data = data[:end]
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))

	for _, filter := range filters(dict) {
		if filter != "FlateDecode" {
			continue
		}
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("bad flate stream: %w", err)
		}
		inflated, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("bad flate stream: %w", err)
		}
		data = inflated
	}
	return data, dict, nil
}

// resolveDict returns the dictionary value for key within body, following
// one level of indirection when the value is a reference.
func (d *document) resolveDict(body []byte, key string) []byte {
	re := regexp.MustCompile(`/` + key + `\s*(<<|\d+\s+\d+\s+R)`)
	m := re.FindSubmatchIndex(body)
	if m == nil {
		return nil
	}
	val := body[m[2]:m[3]]
	if bytes.Equal(val, []byte("<<")) {
		return balancedDict(body, m[2])
	}
	ref, _ := strconv.Atoi(string(refRe.FindSubmatch(val)[1]))
	target := d.objects[ref]
	if target == nil {
		return nil
	}
	if start := bytes.Index(target, []byte("<<")); start >= 0 {
		return balancedDict(target, start)
	}
	return nil
}

// balancedDict returns the dictionary starting at start (which must point
// at "<<"), including nested dictionaries.
func balancedDict(body []byte, start int) []byte {
	depth := 0
	for i := start; i < len(body)-1; i++ {
		switch {
		case body[i] == '<' && body[i+1] == '<':
			depth++
			i++
		case body[i] == '>' && body[i+1] == '>':
			depth--
			i++
			if depth == 0 {
				return body[start : i+1]
			}
		}
	}
	return body[start:]
}

func arrayEntry(body []byte, key string) []byte {
	re := regexp.MustCompile(`(?s)/` + key + `\s*\[([^\]]*)\]`)
	if m := re.FindSubmatch(body); m != nil {
		return m[1]
	}
	return nil
}

func intEntry(dict []byte, key string) int {
	re := regexp.MustCompile(`/` + key + `\s+(\d+)`)
	if m := re.FindSubmatch(dict); m != nil {
		n, _ := strconv.Atoi(string(m[1]))
		return n
	}
	return 0
}

func nameEntry(dict []byte, key string) string {
	re := regexp.MustCompile(`/` + key + `\s*/(\w+)`)
	if m := re.FindSubmatch(dict); m != nil {
		return string(m[1])
	}
	return ""
}

func filters(dict []byte) []string {
	m := filterRe.FindSubmatch(dict)
	if m == nil {
		return nil
	}
	var out []string
	for _, f := range regexp.MustCompile(`/(\w+)`).FindAllSubmatch(m[1], -1) {
		out = append(out, string(f[1]))
	}
	return out
}
