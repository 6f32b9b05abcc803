package document

import "errors"

var (
	// ErrNotPDF is returned when a URL does not serve a PDF
	ErrNotPDF = errors.New("resource is not a PDF")

	// ErrParse is returned when the PDF parser fails or panics
	ErrParse = errors.New("failed to parse PDF")
)
