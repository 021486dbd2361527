// Package persistence implements resource.Store over GORM for PostgreSQL
// (pgvector column) and SQLite (JSON-encoded vectors, used by tests).
package persistence

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/infrahive/assetvec/domain/resource"
	"github.com/infrahive/assetvec/internal/database"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// resourceTable is the backfilled table name.
const resourceTable = "resource_embeddings"

// ErrDimensionMismatch indicates a vector whose length differs from the
// dimension the table was created with.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// NewResourceStore selects the store implementation matching the
// connected database driver.
func NewResourceStore(ctx context.Context, db database.Database, logger *slog.Logger) (resource.Store, error) {
	switch {
	case db.IsPostgres():
		return NewPgResourceStore(ctx, db, logger)
	case db.IsSQLite():
		return NewSQLiteResourceStore(db, logger)
	default:
		return nil, database.ErrUnsupportedDriver
	}
}

// PgResourceModel is the GORM model for resource_embeddings on PostgreSQL.
type PgResourceModel struct {
	ID           int64            `gorm:"column:id;primaryKey;autoIncrement"`
	ResourceType string           `gorm:"column:resource_type;not null"`
	ResourceID   string           `gorm:"column:resource_id;not null"`
	Payload      datatypes.JSON   `gorm:"column:resource_data;not null"`
	Embedding    *pgvector.Vector `gorm:"column:embedding;type:vector(384)"`
}

// TableName implements the GORM table name convention.
func (PgResourceModel) TableName() string { return resourceTable }

// pgResourceMapper maps between resource.Record and PgResourceModel.
type pgResourceMapper struct{}

func (pgResourceMapper) ToDomain(entity PgResourceModel) resource.Record {
	var vec []float32
	if entity.Embedding != nil {
		vec = entity.Embedding.Slice()
	}
	return resource.ReconstructRecord(
		entity.ID,
		entity.ResourceType,
		entity.ResourceID,
		resource.Payload(entity.Payload),
		vec,
	)
}

func (pgResourceMapper) ToModel(domain resource.Record) PgResourceModel {
	m := PgResourceModel{
		ID:           domain.ID(),
		ResourceType: domain.ResourceType(),
		ResourceID:   domain.ResourceID(),
		Payload:      datatypes.JSON(domain.Payload()),
	}
	if domain.HasEmbedding() {
		vec := pgvector.NewVector(domain.Embedding())
		m.Embedding = &vec
	}
	return m
}

// Float32Slice is a custom type for JSON serialization of []float32 in
// SQLite, where no vector column type exists. A nil slice maps to NULL.
type Float32Slice []float32

// Scan implements sql.Scanner for reading JSON from SQLite.
func (f *Float32Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float32Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer for writing JSON to SQLite.
func (f Float32Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// SQLiteResourceModel is the GORM model for resource_embeddings on SQLite.
type SQLiteResourceModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ResourceType string         `gorm:"column:resource_type;not null;uniqueIndex:idx_resource_identity"`
	ResourceID   string         `gorm:"column:resource_id;not null;uniqueIndex:idx_resource_identity"`
	Payload      datatypes.JSON `gorm:"column:resource_data;not null"`
	Embedding    Float32Slice   `gorm:"column:embedding;type:json"`
}

// TableName implements the GORM table name convention.
func (SQLiteResourceModel) TableName() string { return resourceTable }

// sqliteResourceMapper maps between resource.Record and SQLiteResourceModel.
type sqliteResourceMapper struct{}

func (sqliteResourceMapper) ToDomain(entity SQLiteResourceModel) resource.Record {
	return resource.ReconstructRecord(
		entity.ID,
		entity.ResourceType,
		entity.ResourceID,
		resource.Payload(entity.Payload),
		[]float32(entity.Embedding),
	)
}

func (sqliteResourceMapper) ToModel(domain resource.Record) SQLiteResourceModel {
	m := SQLiteResourceModel{
		ID:           domain.ID(),
		ResourceType: domain.ResourceType(),
		ResourceID:   domain.ResourceID(),
		Payload:      datatypes.JSON(domain.Payload()),
	}
	if domain.HasEmbedding() {
		m.Embedding = Float32Slice(domain.Embedding())
	}
	return m
}

// AutoMigrate creates the SQLite schema. PostgreSQL schema setup happens
// eagerly in NewPgResourceStore because the vector column needs raw DDL.
func AutoMigrate(db database.Database) error {
	return db.Session(context.Background()).AutoMigrate(&SQLiteResourceModel{})
}

// statsRow receives the verification aggregate. NonNull computes the
// same count as WithEmbedding through an explicit FILTER clause as a
// cross-check; only WithEmbedding is reported.
type statsRow struct {
	Total         int64 `gorm:"column:total"`
	WithEmbedding int64 `gorm:"column:with_embedding"`
	NonNull       int64 `gorm:"column:non_null"`
}

const statsQuery = `
SELECT
    COUNT(*) AS total,
    COUNT(embedding) AS with_embedding,
    COUNT(*) FILTER (WHERE embedding IS NOT NULL) AS non_null
FROM resource_embeddings`
