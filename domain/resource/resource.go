// Package resource provides domain types for inventory resources and
// their embedding vectors.
package resource

import (
	"encoding/json"
	"fmt"
)

// EmbeddingDim is the vector dimension produced by the embedding model
// (all-MiniLM-L6-v2) and enforced by the stores.
const EmbeddingDim = 384

// TypeEC2Instance is the resource type of the built-in seed rows.
const TypeEC2Instance = "ec2_instance"

// Payload is the raw JSON document describing a resource, as stored in
// the resource_data column.
type Payload []byte

// NewPayload encodes a field map as a Payload.
func NewPayload(fields map[string]any) (Payload, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return Payload(data), nil
}

// Fields decodes the payload into a field map. Fails when the payload is
// not a JSON object.
func (p Payload) Fields() (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	// JSON null decodes into a nil map without error.
	if fields == nil {
		return nil, fmt.Errorf("decode payload: not a JSON object")
	}
	return fields, nil
}

// String returns the raw JSON text.
func (p Payload) String() string {
	return string(p)
}

// Record represents one row of the resource_embeddings table: a typed
// resource identity, its JSON payload, and an optional embedding vector.
// This is an immutable value object identified by its ID once persisted.
type Record struct {
	id           int64
	resourceType string
	resourceID   string
	payload      Payload
	embedding    []float32
}

// NewRecord creates a record for new instances (not yet persisted).
// The embedding starts empty; it is populated by the backfill loop.
func NewRecord(resourceType, resourceID string, payload Payload) Record {
	return Record{
		id:           0,
		resourceType: resourceType,
		resourceID:   resourceID,
		payload:      payload,
	}
}

// ReconstructRecord recreates a record from persistence (for store use).
func ReconstructRecord(id int64, resourceType, resourceID string, payload Payload, embedding []float32) Record {
	return Record{
		id:           id,
		resourceType: resourceType,
		resourceID:   resourceID,
		payload:      payload,
		embedding:    embedding,
	}
}

// ID returns the record's database identifier (0 when not yet persisted).
func (r Record) ID() int64 {
	return r.id
}

// ResourceType returns the resource category tag (e.g. "ec2_instance").
func (r Record) ResourceType() string {
	return r.resourceType
}

// ResourceID returns the external resource identifier. The pair
// (ResourceType, ResourceID) is unique in storage.
func (r Record) ResourceID() string {
	return r.resourceID
}

// Payload returns the raw JSON payload.
func (r Record) Payload() Payload {
	return r.payload
}

// Embedding returns a copy of the embedding vector, or nil when the
// record has none yet.
func (r Record) Embedding() []float32 {
	if r.embedding == nil {
		return nil
	}
	cp := make([]float32, len(r.embedding))
	copy(cp, r.embedding)
	return cp
}

// HasEmbedding reports whether the record carries an embedding vector.
func (r Record) HasEmbedding() bool {
	return len(r.embedding) > 0
}

// WithEmbedding returns a copy of the record with the given vector.
func (r Record) WithEmbedding(embedding []float32) Record {
	cp := make([]float32, len(embedding))
	copy(cp, embedding)
	r.embedding = cp
	return r
}

// Stats summarizes embedding coverage of the table.
type Stats struct {
	total         int64
	withEmbedding int64
}

// NewStats creates a Stats value.
func NewStats(total, withEmbedding int64) Stats {
	return Stats{total: total, withEmbedding: withEmbedding}
}

// Total returns the number of rows in the table.
func (s Stats) Total() int64 {
	return s.total
}

// WithEmbedding returns the number of rows holding a non-null vector.
func (s Stats) WithEmbedding() int64 {
	return s.withEmbedding
}

// Complete reports whether every row has an embedding. An empty table is
// not complete.
func (s Stats) Complete() bool {
	return s.total > 0 && s.withEmbedding == s.total
}
