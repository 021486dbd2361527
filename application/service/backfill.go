// Package service orchestrates the embedding backfill: one transaction
// covering seeding and every per-row update, followed by a read-only
// verification pass.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/infrahive/assetvec/domain/job"
	"github.com/infrahive/assetvec/domain/resource"
	"github.com/infrahive/assetvec/infrastructure/provider"
)

// samplePreviewDims is how many leading vector components the verification
// sample shows.
const samplePreviewDims = 5

// Report summarizes a backfill run.
type Report struct {
	Seeded             int64
	Processed          int
	Stats              resource.Stats
	SampleResourceType string
	SampleResourceID   string
	SamplePreview      []float32
	Duration           time.Duration
}

// PreviewString formats the sample vector preview to four decimal places.
func (r Report) PreviewString() string {
	parts := make([]string, len(r.SamplePreview))
	for i, v := range r.SamplePreview {
		parts[i] = fmt.Sprintf("%.4f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Backfill embeds every resource row and writes the vectors back in one
// transaction. Strictly sequential: rows are processed in ascending id
// order, one embedding call per row, no retries.
type Backfill struct {
	store    resource.Store
	embedder provider.Embedder
	logger   *slog.Logger
}

// NewBackfill creates a Backfill service.
func NewBackfill(store resource.Store, embedder provider.Embedder, logger *slog.Logger) *Backfill {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfill{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Run executes the backfill. On success every row holds an embedding and
// the returned Report carries verification results. Any failure before
// commit rolls back seeds and updates together.
func (b *Backfill) Run(ctx context.Context) (Report, error) {
	var report Report
	start := time.Now()
	status := job.NewStatus()

	b.advance(&status, job.PhaseLoadingModel)
	if err := b.embedder.Load(ctx); err != nil {
		return b.fail(report, &status, start, fmt.Errorf("load embedding model: %w", err))
	}
	b.logger.Info("embedding model loaded", slog.Int("dimensions", b.embedder.Dimensions()))

	b.advance(&status, job.PhaseConnecting)

	var seeded int64
	var processed int
	err := b.store.Transaction(ctx, func(tx resource.Store) error {
		count, err := tx.Count(ctx)
		if err != nil {
			return fmt.Errorf("count resources: %w", err)
		}

		if count == 0 {
			b.advance(&status, job.PhaseSeeding)
			seeded, err = b.seed(ctx, tx)
			if err != nil {
				return err
			}
		}

		b.advance(&status, job.PhaseEmbedding)
		processed, err = b.embedAll(ctx, tx, &status)
		if err != nil {
			return err
		}

		b.advance(&status, job.PhaseCommitting)
		return nil
	})
	if err != nil {
		return b.fail(report, &status, start, err)
	}
	report.Seeded = seeded
	report.Processed = processed
	b.logger.Info("transaction committed",
		slog.Int64("seeded", seeded),
		slog.Int("processed", processed),
	)

	b.advance(&status, job.PhaseVerifying)
	if err := b.verify(ctx, &report); err != nil {
		return b.fail(report, &status, start, err)
	}

	status = status.Complete()
	report.Duration = time.Since(start)
	b.logger.Info("backfill completed",
		slog.Int64("total", report.Stats.Total()),
		slog.Int64("with_embeddings", report.Stats.WithEmbedding()),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// seed inserts the sample corpus. Only called when the table is empty;
// conflict-ignore keeps it safe against concurrent writers.
func (b *Backfill) seed(ctx context.Context, tx resource.Store) (int64, error) {
	seeds, err := resource.SeedRecords()
	if err != nil {
		return 0, fmt.Errorf("load seed corpus: %w", err)
	}

	inserted, err := tx.Insert(ctx, seeds)
	if err != nil {
		return 0, fmt.Errorf("seed sample resources: %w", err)
	}
	b.logger.Info("seeded sample resources", slog.Int64("count", inserted))
	return inserted, nil
}

// embedAll fetches every row in id order and updates its embedding. The
// first failing row aborts the transaction with its identity in the error.
func (b *Backfill) embedAll(ctx context.Context, tx resource.Store, status *job.Status) (int, error) {
	records, err := tx.All(ctx, resource.OrderByID())
	if err != nil {
		return 0, fmt.Errorf("fetch resources: %w", err)
	}
	*status = status.SetTotal(len(records))
	b.logger.Info("embedding resources", slog.Int("count", len(records)))

	processed := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		text := resource.DescribeText(rec)
		vecs, err := b.embedder.Embed(ctx, []string{text})
		if err != nil {
			return processed, fmt.Errorf("embed resource %s/%s: %w", rec.ResourceType(), rec.ResourceID(), err)
		}
		if len(vecs) != 1 {
			return processed, fmt.Errorf("embed resource %s/%s: got %d vectors for one text", rec.ResourceType(), rec.ResourceID(), len(vecs))
		}
		if len(vecs[0]) != resource.EmbeddingDim {
			return processed, fmt.Errorf("embed resource %s/%s: %w: got %d, want %d",
				rec.ResourceType(), rec.ResourceID(), ErrDimensionMismatch, len(vecs[0]), resource.EmbeddingDim)
		}

		if err := tx.UpdateEmbedding(ctx, rec.ID(), vecs[0]); err != nil {
			return processed, fmt.Errorf("store embedding for %s/%s: %w", rec.ResourceType(), rec.ResourceID(), err)
		}

		processed++
		*status = status.SetCurrent(processed)
		b.logger.Debug("resource embedded",
			slog.Int64("id", rec.ID()),
			slog.String("resource_type", rec.ResourceType()),
			slog.String("resource_id", rec.ResourceID()),
			slog.String("progress", status.String()),
		)
	}
	return processed, nil
}

// verify runs the read-only post-commit checks and fills the report.
// A verification error surfaces to the caller, but the committed data
// stays committed.
func (b *Backfill) verify(ctx context.Context, report *Report) error {
	stats, err := b.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("verify counts: %w", err)
	}
	report.Stats = stats

	sample, err := b.store.Sample(ctx)
	switch {
	case errors.Is(err, resource.ErrNoRows):
		b.logger.Info("verification found no embedded rows")
		return nil
	case err != nil:
		return fmt.Errorf("verify sample: %w", err)
	}

	report.SampleResourceType = sample.ResourceType()
	report.SampleResourceID = sample.ResourceID()
	vec := sample.Embedding()
	if len(vec) > samplePreviewDims {
		vec = vec[:samplePreviewDims]
	}
	report.SamplePreview = vec

	b.logger.Info("verification sample",
		slog.String("resource_type", report.SampleResourceType),
		slog.String("resource_id", report.SampleResourceID),
		slog.String("preview", report.PreviewString()),
	)
	return nil
}

// advance moves the run status forward and logs the transition.
func (b *Backfill) advance(status *job.Status, next job.Phase) {
	*status = status.Advance(next)
	b.logger.Debug("backfill phase", slog.String("phase", string(next)))
}

// fail marks the status failed, logging the phase the run died in.
func (b *Backfill) fail(report Report, status *job.Status, start time.Time, err error) (Report, error) {
	b.logger.Error("backfill failed",
		slog.String("phase", string(status.Phase())),
		slog.String("error", err.Error()),
	)
	*status = status.Fail(err.Error())
	report.Duration = time.Since(start)
	return report, err
}
