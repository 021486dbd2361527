package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/infrahive/assetvec/domain/repository"
	"github.com/infrahive/assetvec/domain/resource"
	"github.com/infrahive/assetvec/internal/database"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL specific to pgvector (extension, schema, catalog lookups).
const (
	pgCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgCreateTable = `
CREATE TABLE IF NOT EXISTS resource_embeddings (
    id BIGSERIAL PRIMARY KEY,
    resource_type TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    resource_data JSONB NOT NULL,
    embedding VECTOR(384)
)`

	pgCreateIdentityIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS resource_embeddings_identity_idx
ON resource_embeddings (resource_type, resource_id)`

	// For vector columns atttypmod holds the declared dimension.
	pgCheckDimension = `
SELECT a.atttypmod AS dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = 'resource_embeddings'
AND a.attname = 'embedding'`
)

// ErrSchemaInitFailed indicates the pgvector schema could not be prepared.
var ErrSchemaInitFailed = errors.New("failed to initialize resource_embeddings schema")

// PgResourceStore implements resource.Store on PostgreSQL with the
// pgvector extension.
type PgResourceStore struct {
	database.Repository[resource.Record, PgResourceModel]
	db     database.Database
	logger *slog.Logger
}

// NewPgResourceStore creates a PgResourceStore, eagerly creating the
// extension, table and identity index, and verifying that the embedding
// column dimension matches resource.EmbeddingDim.
func NewPgResourceStore(ctx context.Context, db database.Database, logger *slog.Logger) (*PgResourceStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PgResourceStore{
		Repository: database.NewRepository[resource.Record, PgResourceModel](db, pgResourceMapper{}, "resource"),
		db:         db,
		logger:     logger,
	}

	session := db.Session(ctx)

	if err := session.Exec(pgCreateExtension).Error; err != nil {
		return nil, errors.Join(ErrSchemaInitFailed, fmt.Errorf("create extension: %w", err))
	}
	if err := session.Exec(pgCreateTable).Error; err != nil {
		return nil, errors.Join(ErrSchemaInitFailed, fmt.Errorf("create table: %w", err))
	}
	if err := session.Exec(pgCreateIdentityIndex).Error; err != nil {
		return nil, errors.Join(ErrSchemaInitFailed, fmt.Errorf("create identity index: %w", err))
	}

	var dbDimension int
	result := session.Raw(pgCheckDimension).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrSchemaInitFailed, fmt.Errorf("check dimension: %w", result.Error))
	}
	if result.RowsAffected > 0 && dbDimension != resource.EmbeddingDim {
		return nil, fmt.Errorf("%w: table has %d, model produces %d", ErrDimensionMismatch, dbDimension, resource.EmbeddingDim)
	}

	logger.Info("resource_embeddings schema ready", "dimension", resource.EmbeddingDim)
	return s, nil
}

// withDatabase returns a copy of the store bound to another Database,
// typically a transaction.
func (s *PgResourceStore) withDatabase(db database.Database) *PgResourceStore {
	return &PgResourceStore{
		Repository: s.Repository.WithDatabase(db),
		db:         db,
		logger:     s.logger,
	}
}

// All returns records matching the options.
func (s *PgResourceStore) All(ctx context.Context, options ...repository.Option) ([]resource.Record, error) {
	return s.Find(ctx, options...)
}

// Insert persists new records, skipping rows whose identity pair already
// exists. Embeddings of seed rows are NULL until the backfill loop runs.
func (s *PgResourceStore) Insert(ctx context.Context, records []resource.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	models := make([]PgResourceModel, len(records))
	for i, r := range records {
		models[i] = pgResourceMapper{}.ToModel(r)
	}

	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "resource_type"}, {Name: "resource_id"}},
		DoNothing: true,
	}).Create(&models)
	if result.Error != nil {
		return 0, fmt.Errorf("insert resources: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpdateEmbedding sets the embedding vector of one row by primary key.
func (s *PgResourceStore) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if len(embedding) != resource.EmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), resource.EmbeddingDim)
	}

	vec := pgvector.NewVector(embedding)
	result := s.DB(ctx).Model(&PgResourceModel{}).Where("id = ?", id).Update("embedding", &vec)
	if result.Error != nil {
		return fmt.Errorf("update embedding id %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update embedding id %d: %w", id, database.ErrNotFound)
	}
	return nil
}

// Stats returns total and embedded row counts in one aggregate query.
func (s *PgResourceStore) Stats(ctx context.Context) (resource.Stats, error) {
	var row statsRow
	if err := s.DB(ctx).Raw(statsQuery).Scan(&row).Error; err != nil {
		return resource.Stats{}, fmt.Errorf("resource stats: %w", err)
	}
	return resource.NewStats(row.Total, row.WithEmbedding), nil
}

// Sample returns the first record by id that holds an embedding.
func (s *PgResourceStore) Sample(ctx context.Context) (resource.Record, error) {
	rec, err := s.FindOne(ctx, resource.WithEmbeddingPresent(), resource.OrderByID())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return resource.Record{}, resource.ErrNoRows
		}
		return resource.Record{}, err
	}
	return rec, nil
}

// Transaction runs fn against a copy of the store bound to a single
// database transaction.
func (s *PgResourceStore) Transaction(ctx context.Context, fn func(resource.Store) error) error {
	return database.WithTransaction(ctx, s.db, func(tx database.Database) error {
		return fn(s.withDatabase(tx))
	})
}

var _ resource.Store = (*PgResourceStore)(nil)
