package service

import "errors"

// ErrDimensionMismatch indicates an embedder returned a vector whose width
// does not match the storage column.
var ErrDimensionMismatch = errors.New("assetvec: embedding dimension mismatch")
