package markdown

import "errors"

var (
	// ErrEmptyInput is returned when the JSON body is empty.
	ErrEmptyInput = errors.New("empty search result body")

	// ErrUnsupportedFormat is returned when the body is not a search result
	// with an issues array.
	ErrUnsupportedFormat = errors.New("unsupported format, expected issues array")

	// ErrNoIssues is returned when the issues array is empty.
	ErrNoIssues = errors.New("issues array is empty")
)
