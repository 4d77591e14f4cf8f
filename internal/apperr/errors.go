// Package apperr holds the sentinel errors shared across adrlens layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidTitle is returned when a record title has no safe form.
	ErrInvalidTitle = errors.New("invalid record title")
	// ErrUnsafeDirectory is returned when a configured or requested
	// record directory name fails the directory allow-list.
	ErrUnsafeDirectory = errors.New("unsafe record directory name")
	// ErrInvalidDate is returned for an explicit date stamp that is not
	// eight digits.
	ErrInvalidDate = errors.New("invalid date stamp")
	// ErrInvalidPath is returned for paths rejected by the path validator.
	ErrInvalidPath = errors.New("invalid path")
)
