// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrMalformedResponse indicates the model returned text that could not be
// parsed into the expected JSON shape.
var ErrMalformedResponse = errors.New("malformed model response")
