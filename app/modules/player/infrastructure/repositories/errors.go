package playerdb

import "errors"

// ErrNotFound indicates the requested player does not exist.
var ErrNotFound = errors.New("player not found")
