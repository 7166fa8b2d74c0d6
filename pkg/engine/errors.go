package engine

import "errors"

// ErrClosed is returned by Conn methods after the connection was closed.
var ErrClosed = errors.New("engine: closed")
