package basescore

import "errors"

var (
	// ErrNotFound is returned when no score exists for a manufacturer and year
	ErrNotFound = errors.New("base score not found")

	// ErrMissingColumn is returned when the table lacks a required column
	ErrMissingColumn = errors.New("required column missing")

	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("unsupported score table format")
)
