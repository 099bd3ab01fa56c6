package bookcapture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoding
	_ "image/jpeg" // register JPEG decoding
	"image/png"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // register WebP decoding
)

const blobScheme = "blob:"

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// blobResult is the decoded result of the readBlob helper.
type blobResult struct {
	OK      bool   `json:"ok"`
	DataURL string `json:"dataURL"`
	Error   string `json:"error"`
}

// ImageExtractor copies page images out of the browsing context.
//
// Viewers hand page images to the browser as blob: URLs, which only resolve
// inside the page that created them. The extractor reads them there as
// data URLs and decodes the payload on the host.
type ImageExtractor struct {
	page      Page
	normalize bool
	log       *zap.Logger
}

// NewImageExtractor returns an ImageExtractor for p.
func NewImageExtractor(p Page, opts ...Option) *ImageExtractor {
	return newImageExtractor(p, newConfig(opts))
}

func newImageExtractor(p Page, cfg config) *ImageExtractor {
	return &ImageExtractor{page: p, normalize: cfg.normalizePNG, log: cfg.logger.Named("extractor")}
}

// Extract returns the image of el, located for page n. A source that is
// not a blob: URL fails immediately with an [*ExtractionError] wrapping
// [ErrNotBlob]. The page state is not modified.
func (e *ImageExtractor) Extract(ctx context.Context, n int, el PageElement) (*Image, error) {
	if !strings.HasPrefix(el.Src, blobScheme) {
		return nil, &ExtractionError{Page: n, Src: el.Src, Err: ErrNotBlob}
	}

	var res blobResult
	if err := e.page.Call(ctx, fnReadBlob, &res, el.Src); err != nil {
		return nil, &ExtractionError{Page: n, Src: el.Src, Err: err}
	}
	if !res.OK {
		return nil, &ExtractionError{Page: n, Src: el.Src, Err: fmt.Errorf("reading blob: %s", res.Error)}
	}

	mime, data, err := decodeDataURL(res.DataURL)
	if err != nil {
		return nil, &ExtractionError{Page: n, Src: el.Src, Err: err}
	}
	if len(data) == 0 {
		return nil, &ExtractionError{Page: n, Src: el.Src, Err: errors.New("empty image payload")}
	}

	img := &Image{data: data, mime: mime}
	if e.normalize {
		if img, err = toPNG(img); err != nil {
			return nil, &ExtractionError{Page: n, Src: el.Src, Err: err}
		}
	}
	e.log.Debug("image extracted",
		zap.Int("page", n), zap.String("mime", mime), zap.Int("bytes", img.Len()))
	return img, nil
}

// decodeDataURL splits a base64 data URL into its media type and payload.
func decodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, errors.New("malformed data URL: missing data: prefix")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URL: missing payload")
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL: unsupported encoding %q", meta)
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URL payload: %w", err)
	}
	return mime, data, nil
}

// toPNG re-encodes img as PNG unless it already is one.
func toPNG(img *Image) (*Image, error) {
	if bytes.HasPrefix(img.data, pngSignature) {
		return &Image{data: img.data, mime: "image/png"}, nil
	}
	decoded, format, err := image.Decode(bytes.NewReader(img.data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", img.mime, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("encoding %s as png: %w", format, err)
	}
	return &Image{data: buf.Bytes(), mime: "image/png"}, nil
}
