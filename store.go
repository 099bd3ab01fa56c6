package bookcapture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// PageStore persists page images under deterministic file names. A file
// that already exists marks its page as done and is never rewritten.
type PageStore struct {
	fs  afero.Fs
	dir string
}

// NewPageStore returns a PageStore writing into dir on fs.
func NewPageStore(fs afero.Fs, dir string) *PageStore {
	return &PageStore{fs: fs, dir: dir}
}

// FileName returns the file name of page n. Names sort lexically in page
// order for page numbers up to 9999.
func FileName(n int) string {
	return fmt.Sprintf("page_%04d.png", n)
}

// Dir returns the output directory.
func (s *PageStore) Dir() string { return s.dir }

// Path returns the full path of page n.
func (s *PageStore) Path(n int) string {
	return filepath.Join(s.dir, FileName(n))
}

// Exists reports whether page n has already been written.
func (s *PageStore) Exists(n int) (bool, error) {
	ok, err := afero.Exists(s.fs, s.Path(n))
	if err != nil {
		return false, &IOError{Op: "stat", Path: s.Path(n), Err: err}
	}
	return ok, nil
}

// Prepare creates the output directory if it does not exist.
func (s *PageStore) Prepare() error {
	info, err := s.fs.Stat(s.dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return &IOError{Op: "prepare", Path: s.dir, Err: errors.New("not a directory")}
		}
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return &IOError{Op: "prepare", Path: s.dir, Err: err}
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return &IOError{Op: "prepare", Path: s.dir, Err: err}
	}
	return nil
}

// Save writes data as page n and returns [StatusCaptured]. If the page file
// already exists it returns [StatusSkipped] without reading data or
// touching the file. The write goes to a temporary file in the same
// directory which is renamed into place once synced, so a page file is
// either absent or complete.
func (s *PageStore) Save(n int, data []byte) (PageStatus, error) {
	path := s.Path(n)
	exists, err := s.Exists(n)
	if err != nil {
		return StatusFailed, err
	}
	if exists {
		return StatusSkipped, nil
	}

	tmp, err := afero.TempFile(s.fs, s.dir, "."+FileName(n)+".*.tmp")
	if err != nil {
		return StatusFailed, &IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return StatusFailed, &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return StatusFailed, &IOError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return StatusFailed, &IOError{Op: "close", Path: path, Err: err}
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		cleanup()
		return StatusFailed, &IOError{Op: "rename", Path: path, Err: err}
	}
	return StatusCaptured, nil
}
