package store

import "errors"

// ErrNotFound is returned when an operation references an unknown appointment id.
var ErrNotFound = errors.New("not found")
