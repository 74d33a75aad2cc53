package pyramid

import (
	"errors"
	"fmt"
)

// ErrNotPrepared is returned when zoom levels are needed before Prepare ran.
var ErrNotPrepared = errors.New("prepare() first")

// InvalidZoomError is returned for a zoom level that Prepare did not discover.
type InvalidZoomError struct {
	Zoom string
}

func (e *InvalidZoomError) Error() string {
	return fmt.Sprintf("invalid zoom (%s)", e.Zoom)
}

// IsInvalidZoom reports whether err is an InvalidZoomError.
func IsInvalidZoom(err error) bool {
	var target *InvalidZoomError
	return errors.As(err, &target)
}
