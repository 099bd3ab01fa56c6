package bookcapture

import (
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "page_0001.png", FileName(1))
	assert.Equal(t, "page_0042.png", FileName(42))
	assert.Equal(t, "page_9999.png", FileName(9999))
}

func TestFileName_LexicalOrderMatchesNumeric(t *testing.T) {
	var names []string
	for n := 1; n <= 9999; n++ {
		names = append(names, FileName(n))
	}
	assert.True(t, sort.StringsAreSorted(names))
}

func TestPageStore_SaveThenSkip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewPageStore(fs, "out")
	require.NoError(t, s.Prepare())

	status, err := s.Save(3, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, StatusCaptured, status)

	status, err = s.Save(3, []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, status)

	data, err := afero.ReadFile(fs, s.Path(3))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "existing page must not be rewritten")

	ok, err := s.Exists(3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPageStore_NoTempFilesLeft(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewPageStore(fs, "out")
	require.NoError(t, s.Prepare())

	for n := 1; n <= 3; n++ {
		_, err := s.Save(n, []byte{byte(n)})
		require.NoError(t, err)
	}

	entries, err := afero.ReadDir(fs, "out")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
	assert.Equal(t, []string{"page_0001.png", "page_0002.png", "page_0003.png"}, names)
}

func TestPageStore_ReadOnly(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("out", 0o755))
	s := NewPageStore(afero.NewReadOnlyFs(base), "out")

	status, err := s.Save(1, []byte("data"))
	assert.Equal(t, StatusFailed, status)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, s.Path(1), ioErr.Path)
}

func TestPageStore_Prepare(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewPageStore(fs, "a/b/out")
	require.NoError(t, s.Prepare())
	require.NoError(t, s.Prepare(), "existing directory")

	ok, err := afero.DirExists(fs, "a/b/out")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, afero.WriteFile(fs, "file", []byte("x"), 0o644))
	var ioErr *IOError
	assert.ErrorAs(t, NewPageStore(fs, "file").Prepare(), &ioErr)
}
