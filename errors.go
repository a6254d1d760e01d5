package cachingmap

import "errors"

// Package errors.
var (
	// ErrKeyExists is returned by Insert when the key already has a value.
	// Shared-mode code must never drop an existing holder; use Replace
	// under exclusive access to overwrite.
	ErrKeyExists = errors.New("cachingmap: key already exists")
)
