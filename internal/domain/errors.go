package domain

import "errors"

var (
	// ErrBackendUnavailable is returned when the remote backend was pinned but cannot be reached.
	// It is reported before any embedding work starts.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrExtractionEmpty indicates an extractor produced no usable text.
	ErrExtractionEmpty = errors.New("no text could be extracted")

	// ErrUnsupportedInput indicates an unrecognized content type.
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrInvalidTarget indicates an unknown backend mode string.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrInvalidInput indicates malformed or missing input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSummarizerUnavailable indicates the summarization model cannot be used.
	// Callers fall back to the deterministic summarizer.
	ErrSummarizerUnavailable = errors.New("summarizer unavailable")
)
