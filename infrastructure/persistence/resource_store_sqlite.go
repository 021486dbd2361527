package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/infrahive/assetvec/domain/repository"
	"github.com/infrahive/assetvec/domain/resource"
	"github.com/infrahive/assetvec/internal/database"
	"gorm.io/gorm/clause"
)

// SQLiteResourceStore implements resource.Store on SQLite. Vectors are
// stored as JSON text, which is enough for tests and local runs.
type SQLiteResourceStore struct {
	database.Repository[resource.Record, SQLiteResourceModel]
	db     database.Database
	logger *slog.Logger
}

// NewSQLiteResourceStore creates a SQLiteResourceStore and migrates the
// schema.
func NewSQLiteResourceStore(db database.Database, logger *slog.Logger) (*SQLiteResourceStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate resource_embeddings: %w", err)
	}
	logger.Info("resource_embeddings schema ready")
	return &SQLiteResourceStore{
		Repository: database.NewRepository[resource.Record, SQLiteResourceModel](db, sqliteResourceMapper{}, "resource"),
		db:         db,
		logger:     logger,
	}, nil
}

func (s *SQLiteResourceStore) withDatabase(db database.Database) *SQLiteResourceStore {
	return &SQLiteResourceStore{
		Repository: s.Repository.WithDatabase(db),
		db:         db,
		logger:     s.logger,
	}
}

// All returns records matching the options.
func (s *SQLiteResourceStore) All(ctx context.Context, options ...repository.Option) ([]resource.Record, error) {
	return s.Find(ctx, options...)
}

// Insert persists new records, skipping rows whose identity pair already
// exists.
func (s *SQLiteResourceStore) Insert(ctx context.Context, records []resource.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	models := make([]SQLiteResourceModel, len(records))
	for i, r := range records {
		models[i] = sqliteResourceMapper{}.ToModel(r)
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
func (s *SQLiteResourceStore) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if len(embedding) != resource.EmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), resource.EmbeddingDim)
	}

	result := s.DB(ctx).Model(&SQLiteResourceModel{}).Where("id = ?", id).Update("embedding", Float32Slice(embedding))
	if result.Error != nil {
		return fmt.Errorf("update embedding id %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update embedding id %d: %w", id, database.ErrNotFound)
	}
	return nil
}

// Stats returns total and embedded row counts in one aggregate query.
func (s *SQLiteResourceStore) Stats(ctx context.Context) (resource.Stats, error) {
	var row statsRow
	if err := s.DB(ctx).Raw(statsQuery).Scan(&row).Error; err != nil {
		return resource.Stats{}, fmt.Errorf("resource stats: %w", err)
	}
	return resource.NewStats(row.Total, row.WithEmbedding), nil
}

// Sample returns the first record by id that holds an embedding.
func (s *SQLiteResourceStore) Sample(ctx context.Context) (resource.Record, error) {
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
func (s *SQLiteResourceStore) Transaction(ctx context.Context, fn func(resource.Store) error) error {
	return database.WithTransaction(ctx, s.db, func(tx database.Database) error {
		return fn(s.withDatabase(tx))
	})
}

var _ resource.Store = (*SQLiteResourceStore)(nil)
