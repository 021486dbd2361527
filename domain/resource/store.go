package resource

import (
	"context"
	"errors"

	"github.com/infrahive/assetvec/domain/repository"
)

// ErrNoRows indicates no record matched (e.g. sampling an empty table).
var ErrNoRows = errors.New("no matching records")

// Store defines persistence operations for resource embedding records.
type Store interface {
	// All returns records matching the options.
	All(ctx context.Context, options ...repository.Option) ([]Record, error)

	// Count returns the number of records matching the options.
	Count(ctx context.Context, options ...repository.Option) (int64, error)

	// Insert persists new records, silently skipping rows whose
	// (resource_type, resource_id) pair already exists. Returns the
	// number of rows actually inserted.
	Insert(ctx context.Context, records []Record) (int64, error)

	// UpdateEmbedding sets the embedding vector of the row with the
	// given primary key.
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error

	// Stats returns total and embedded row counts in one aggregate query.
	Stats(ctx context.Context) (Stats, error)

	// Sample returns the first record (by id) holding an embedding.
	// Returns ErrNoRows when none exists.
	Sample(ctx context.Context) (Record, error)

	// Transaction runs fn against a store whose writes stay in a single
	// database transaction, committed when fn returns nil and rolled
	// back otherwise.
	Transaction(ctx context.Context, fn func(Store) error) error
}

// WithResourceType filters by the "resource_type" column.
func WithResourceType(resourceType string) repository.Option {
	return repository.WithCondition("resource_type", resourceType)
}

// WithResourceID filters by the "resource_id" column.
func WithResourceID(resourceID string) repository.Option {
	return repository.WithCondition("resource_id", resourceID)
}

// WithEmbeddingPresent filters for rows holding a non-null vector.
func WithEmbeddingPresent() repository.Option {
	return repository.WithWhere("embedding IS NOT NULL")
}

// WithEmbeddingMissing filters for rows without a vector.
func WithEmbeddingMissing() repository.Option {
	return repository.WithWhere("embedding IS NULL")
}

// OrderByID orders ascending by primary key, the stable processing order
// of the backfill loop.
func OrderByID() repository.Option {
	return repository.WithOrderAsc("id")
}
