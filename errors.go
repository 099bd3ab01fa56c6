package bookcapture

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Session].
	ErrClosed = errors.New("bookcapture: session is closed")

	// ErrPageNotFound is returned when no page element with a loaded image
	// could be located for a page number.
	ErrPageNotFound = errors.New("bookcapture: page element not found")

	// ErrNotBlob is returned when a page image source is not a blob: URL.
	ErrNotBlob = errors.New("bookcapture: image source is not a blob reference")
)

// SessionError reports a browser launch, context creation or navigation
// failure. It is fatal for a capture run.
type SessionError struct {
	Op  string
	URL string
	Err error
}

func (e *SessionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("bookcapture: session %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("bookcapture: session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// RenderTimeoutError reports that a readiness predicate did not hold within
// its timeout. Err holds the last evaluation error, if any.
type RenderTimeoutError struct {
	Condition string
	Timeout   time.Duration
	Err       error
}

func (e *RenderTimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bookcapture: %s not ready after %v: %v", e.Condition, e.Timeout, e.Err)
	}
	return fmt.Sprintf("bookcapture: %s not ready after %v", e.Condition, e.Timeout)
}

func (e *RenderTimeoutError) Unwrap() error { return e.Err }

// ExtractionError reports a failure to pull a page image out of the
// browsing context.
type ExtractionError struct {
	Page int
	Src  string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("bookcapture: extract page %d: %v", e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IOError reports a failure to persist a page image.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("bookcapture: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
