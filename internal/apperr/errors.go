// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrImportEmpty          = errors.New("no valid word lines found")
	ErrNoCurrentWord        = errors.New("no current word")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNotText              = errors.New("not a text file")
)
