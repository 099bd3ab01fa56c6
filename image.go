package bookcapture

import (
	"bytes"
	"encoding/base64"
	"io"
)

// Image holds the bytes of one extracted page image.
//
// Its methods may be called multiple times; the underlying data is never
// modified.
type Image struct {
	data []byte
	mime string
}

// Bytes returns the raw image content.
func (i *Image) Bytes() []byte {
	return i.data
}

// MIME returns the media type of the content, for example "image/png".
func (i *Image) MIME() string {
	return i.mime
}

// Base64 returns the image encoded as a standard base64 string (RFC 4648).
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.data)
}

// Reader returns an [*bytes.Reader] over the image content.
func (i *Image) Reader() *bytes.Reader {
	return bytes.NewReader(i.data)
}

// WriteTo writes the full image content to w. It implements [io.WriterTo].
func (i *Image) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(i.data)
	return int64(n), err
}

// Len returns the size of the image in bytes.
func (i *Image) Len() int {
	return len(i.data)
}
