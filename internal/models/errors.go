package models

import "errors"

// Error kinds surfaced by the question-answering core. Causes are wrapped with
// fmt.Errorf("%w: ...: %w", kind, cause) so errors.Is matches both.
var (
	// ErrInvalidInput reports a question the core cannot process (e.g. blank text).
	ErrInvalidInput = errors.New("invalid input")
	// ErrGraphQuery reports a graph executor failure (connectivity, query syntax).
	ErrGraphQuery = errors.New("graph query failed")
	// ErrRetrieval reports a vector retrieval failure.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration reports an answer generation failure.
	ErrGeneration = errors.New("generation failed")
)
