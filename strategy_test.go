package bookcapture

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func constStrategy(name string, v int, ok bool, err error, ran *[]string) strategy[int] {
	return strategy[int]{name: name, try: func(context.Context) (int, bool, error) {
		*ran = append(*ran, name)
		return v, ok, err
	}}
}

func TestFirstOf_FirstSuccessWins(t *testing.T) {
	var ran []string
	v, via, err := firstOf(context.Background(), zap.NewNop(),
		constStrategy("absent", 0, false, nil, &ran),
		constStrategy("broken", 0, false, errors.New("boom"), &ran),
		constStrategy("works", 7, true, nil, &ran),
		constStrategy("unreached", 9, true, nil, &ran),
	)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, "works", via)
	assert.Equal(t, []string{"absent", "broken", "works"}, ran)
}

func TestFirstOf_ErrorWithOkIsAFailure(t *testing.T) {
	var ran []string
	v, via, err := firstOf(context.Background(), zap.NewNop(),
		constStrategy("half", 1, true, errors.New("click failed"), &ran),
		constStrategy("fallback", 2, true, nil, &ran),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, "fallback", via)
}

func TestFirstOf_NoneSucceeds(t *testing.T) {
	var ran []string
	last := errors.New("last")
	v, via, err := firstOf(context.Background(), zap.NewNop(),
		constStrategy("a", 0, false, errors.New("first"), &ran),
		constStrategy("b", 0, false, last, &ran),
	)
	assert.ErrorIs(t, err, last)
	assert.Zero(t, v)
	assert.Empty(t, via)
}

func TestFirstOf_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran []string
	_, _, err := firstOf(ctx, zap.NewNop(), constStrategy("a", 1, true, nil, &ran))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}
