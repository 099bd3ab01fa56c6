package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/afero"
)

// PageInfo holds the media box dimensions of one page in points.
type PageInfo struct {
	Number int
	Width  float64
	Height float64
}

// Inspect returns the dimensions of every page of the document at path.
func Inspect(fs afero.Fs, path string) ([]PageInfo, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: opening %s: %w", path, err)
	}
	defer f.Close()

	dims, err := api.PageDims(f, configuration())
	if err != nil {
		return nil, fmt.Errorf("pdf: reading %s: %w", path, err)
	}
	pages := make([]PageInfo, len(dims))
	for i, d := range dims {
		pages[i] = PageInfo{Number: i + 1, Width: d.Width, Height: d.Height}
	}
	return pages, nil
}
