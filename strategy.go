package bookcapture

import (
	"context"

	"go.uber.org/zap"
)

// strategy is one named way of producing a T. try reports ok=false when the
// strategy does not apply, and an error when it was attempted and failed.
type strategy[T any] struct {
	name string
	try  func(ctx context.Context) (T, bool, error)
}

// firstOf runs strategies in order and returns the result of the first one
// that succeeds, with its name. Failures are logged at debug level. When
// no strategy succeeds the zero T and an empty name are returned with the
// last error seen.
func firstOf[T any](ctx context.Context, log *zap.Logger, strategies ...strategy[T]) (T, string, error) {
	var (
		zero    T
		lastErr error
	)
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		v, ok, err := s.try(ctx)
		switch {
		case err != nil:
			lastErr = err
			log.Debug("strategy failed", zap.String("strategy", s.name), zap.Error(err))
		case !ok:
			log.Debug("strategy not applicable", zap.String("strategy", s.name))
		default:
			return v, s.name, nil
		}
	}
	return zero, "", lastErr
}
