package browser

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrElementNotFound  = errors.New("element not found")
	ErrUnsupported      = errors.New("operation not supported by this backend")
	ErrSessionClosed    = errors.New("browser session closed")
	ErrStaleElement     = errors.New("element is no longer attached to the page")
	ErrNoFrame          = errors.New("not inside a frame")
	ErrCrossOriginFrame = errors.New("frame content is not accessible")
	ErrLastTab          = errors.New("cannot close the last tab")
	ErrNoTab            = errors.New("no such tab")
	ErrWaitTimeout      = errors.New("timed out waiting for element")
)

// StatusError reports an HTTP error status for a navigation.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("loading %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// IsNotFound reports whether err is a 404 or 410 navigation error.
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusNotFound || se.Code == http.StatusGone
	}
	return false
}

// NotFoundError wraps ErrElementNotFound with the selector that missed.
func NotFoundError(selector string) error {
	return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
}
