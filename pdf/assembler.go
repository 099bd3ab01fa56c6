// Package pdf assembles captured page images into a single PDF document and
// inspects the result.
//
// Every image becomes one page sized exactly to the image's pixel
// dimensions, one point per pixel, with the image filling the page:
//
//	a := pdf.NewAssembler(pdf.WithLogger(logger))
//	res, err := a.Assemble(ctx, "downloaded_book", "book.pdf")
//
// Images are taken in file name order, which the page_NNNN.png names of
// the capture package keep in page order.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png" // register PNG decoding for DecodeConfig
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ImageExt is the extension of the files picked up by [Assembler.Assemble].
const ImageExt = ".png"

// ErrNoImages is returned when a directory holds no assemblable image.
var ErrNoImages = errors.New("pdf: no images to assemble")

var disableConfigDir sync.Once

// configuration returns a pdfcpu configuration that does not touch the
// user's pdfcpu config directory.
func configuration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Page describes one image placed in the output.
type Page struct {
	Name   string
	Width  int
	Height int
}

// Result describes an assembled document.
type Result struct {
	Output  string
	Pages   []Page
	Skipped []string // Files that could not be decoded.
	Size    int64    // Size of the output file in bytes.
}

// Assembler turns a directory of page images into a PDF.
type Assembler struct {
	fs            afero.Fs
	log           *zap.Logger
	progressEvery int
}

// Option configures an [Assembler].
type Option func(*Assembler)

// WithFs sets the filesystem images are read from and the document is
// written to. Defaults to the operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(a *Assembler) {
		a.fs = fs
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) {
		a.log = l
	}
}

// WithProgressEvery logs a progress line every n pages. Zero disables it.
func WithProgressEvery(n int) Option {
	return func(a *Assembler) {
		a.progressEvery = n
	}
}

// NewAssembler returns an Assembler configured by opts.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{fs: afero.NewOsFs(), log: zap.NewNop(), progressEvery: 10}
	for _, o := range opts {
		o(a)
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	a.log = a.log.Named("assembler")
	return a
}

// Assemble writes the images in dir to out, one page per image, in file
// name order. Files that cannot be decoded are logged and left out. When
// dir holds no decodable image [ErrNoImages] is returned and no output is
// created. The document is written to a temporary file next to out and
// renamed into place once it has been flushed.
func (a *Assembler) Assemble(ctx context.Context, dir, out string) (*Result, error) {
	names, err := a.listImages(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	a.log.Info("assembling", zap.String("dir", dir), zap.Int("images", len(names)))

	res := &Result{Output: out}
	for _, name := range names {
		w, h, err := a.dimensions(filepath.Join(dir, name))
		if err != nil {
			a.log.Warn("skipping image", zap.String("file", name), zap.Error(err))
			res.Skipped = append(res.Skipped, name)
			continue
		}
		res.Pages = append(res.Pages, Page{Name: name, Width: w, Height: h})
	}
	if len(res.Pages) == 0 {
		return nil, fmt.Errorf("%w in %s: none of %d files could be decoded", ErrNoImages, dir, len(names))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readers := make([]io.Reader, len(res.Pages))
	for i, p := range res.Pages {
		readers[i] = &lazyImage{
			ctx:  ctx,
			fs:   a.fs,
			path: filepath.Join(dir, p.Name),
			onOpen: func() {
				a.progress(i+1, len(res.Pages), p)
			},
		}
	}
	defer func() {
		for _, r := range readers {
			r.(*lazyImage).close()
		}
	}()

	size, err := a.write(out, readers)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	res.Size = size

	a.log.Info("document written",
		zap.String("output", out),
		zap.Int("pages", len(res.Pages)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int64("bytes", size))
	return res, nil
}

// listImages returns the image file names in dir, sorted.
func (a *Assembler) listImages(dir string) ([]string, error) {
	entries, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("pdf: reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Mode().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ImageExt) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

func (a *Assembler) dimensions(path string) (int, int, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

func (a *Assembler) progress(done, total int, p Page) {
	if a.progressEvery > 0 && (done%a.progressEvery == 0 || done == total) {
		a.log.Info("progress", zap.Int("page", done), zap.Int("total", total))
	}
	a.log.Debug("adding page",
		zap.String("file", p.Name), zap.Int("width", p.Width), zap.Int("height", p.Height))
}

// write imports readers into a new document at out and returns its size.
func (a *Assembler) write(out string, readers []io.Reader) (int64, error) {
	dir := filepath.Dir(out)
	tmp, err := afero.TempFile(a.fs, dir, "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("pdf: creating %s: %w", out, err)
	}
	tmpName := tmp.Name()
	fail := func(op string, err error) (int64, error) {
		tmp.Close()
		_ = a.fs.Remove(tmpName)
		return 0, fmt.Errorf("pdf: %s %s: %w", op, out, err)
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full
	if err := api.ImportImages(nil, tmp, readers, imp, configuration()); err != nil {
		return fail("writing", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing", err)
	}
	if err := tmp.Close(); err != nil {
		_ = a.fs.Remove(tmpName)
		return 0, fmt.Errorf("pdf: closing %s: %w", out, err)
	}
	if err := a.fs.Rename(tmpName, out); err != nil {
		_ = a.fs.Remove(tmpName)
		return 0, fmt.Errorf("pdf: renaming %s: %w", out, err)
	}

	info, err := a.fs.Stat(out)
	if err != nil {
		return 0, fmt.Errorf("pdf: stat %s: %w", out, err)
	}
	return info.Size(), nil
}

// lazyImage opens its file on first read and closes it at EOF, so only one
// image file is open while the document is written.
type lazyImage struct {
	ctx    context.Context
	fs     afero.Fs
	path   string
	onOpen func()
	f      afero.File
	done   bool
}

func (l *lazyImage) Read(p []byte) (int, error) {
	if err := l.ctx.Err(); err != nil {
		return 0, err
	}
	if l.done {
		return 0, io.EOF
	}
	if l.f == nil {
		f, err := l.fs.Open(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
		if l.onOpen != nil {
			l.onOpen()
		}
	}
	n, err := l.f.Read(p)
	if errors.Is(err, io.EOF) {
		l.close()
	}
	return n, err
}

func (l *lazyImage) close() {
	if l.f != nil {
		l.f.Close()
		l.f = nil
	}
	l.done = true
}
