package event

import "errors"

// ErrBusClosed is returned by Subscribe after the bus has been closed.
var ErrBusClosed = errors.New("event bus is closed")
