package bookcapture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageLocator_ByAttribute(t *testing.T) {
	v := newFakeViewer(3)
	l := newPageLocator(v, testConfig(t))

	el, found, err := l.Resolve(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "blob:fake/1", el.Src)
	assert.Equal(t, 1, el.Page)
	assert.Zero(t, v.callCount(fnLocateVisible))
}

func TestPageLocator_FallsBackToVisible(t *testing.T) {
	v := newFakeViewer(3)
	v.noAttr = true
	l := newPageLocator(v, testConfig(t))

	el, found, err := l.Resolve(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "blob:fake/1", el.Src)
	assert.Equal(t, 1, v.callCount(fnLocateVisible))
}

func TestPageLocator_UnloadedMatchIsNotFound(t *testing.T) {
	v := newFakeViewer(5)
	v.current = 5
	v.unloaded[5] = true
	l := newPageLocator(v, testConfig(t))

	el, found, err := l.Resolve(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, el.Matched)
	assert.Equal(t, 5, el.Page)
	assert.Empty(t, el.Src)
	assert.Zero(t, v.callCount(fnLocateVisible), "a wrapper carrying the page number ends the search")
}

func TestPageLocator_NoCandidateIsNotAnError(t *testing.T) {
	v := newFakeViewer(3)
	v.noAttr = true
	v.noVisible = true
	l := newPageLocator(v, testConfig(t))

	_, found, err := l.Resolve(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPageLocator_LookupFailuresKeepCause(t *testing.T) {
	v := newFakeViewer(3)
	v.closed = true
	l := newPageLocator(v, testConfig(t))

	_, found, err := l.Resolve(context.Background(), 2)
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrPageNotFound)
	assert.ErrorIs(t, err, ErrClosed)
}
