// Package provider implements embedding generation backends: a local ONNX
// sentence-transformer pipeline (hugot) and an OpenAI-compatible HTTP
// endpoint. The backfill job talks to both through the Embedder interface.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelNotLoaded is returned by Embed when Load has not succeeded yet.
var ErrModelNotLoaded = errors.New("embedding model not loaded")

// Embedder generates fixed-width embedding vectors for texts.
//
// Load must be called once before Embed; it is idempotent. Embed calls
// are synchronous and unretried: a failure means the current run aborts.
type Embedder interface {
	// Load prepares the model. Safe to call more than once.
	Load(ctx context.Context) error
	// Embed returns one vector per input text, in input order. Every
	// vector has exactly Dimensions() elements.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the vector width this embedder produces.
	Dimensions() int
	// Close releases resources held by the embedder.
	Close() error
}

// ProviderError describes a failed call to an embedding backend.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	err        error
}

// NewProviderError creates a ProviderError. statusCode is 0 when no HTTP
// status applies.
func NewProviderError(operation string, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		err:        err,
	}
}

// Operation returns the name of the failed operation.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *ProviderError) StatusCode() int { return e.statusCode }

func (e *ProviderError) Error() string {
	if e.statusCode != 0 {
		return fmt.Sprintf("provider %s failed (status %d): %s", e.operation, e.statusCode, e.message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.operation, e.message)
}

func (e *ProviderError) Unwrap() error { return e.err }
