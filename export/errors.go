package export

import "errors"

var (
	// ErrMalformedExport indicates an export file that could not be decoded.
	ErrMalformedExport = errors.New("malformed export")
)
