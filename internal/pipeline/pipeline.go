// Package pipeline drives one ingestion run end to end.
//
// A run walks the snapshot directory in lexicographic order and processes one
// blob at a time: load → extract → impute → plan → write. Each record gets
// its own transaction, so a bad blob is logged and counted but never poisons
// the records around it. There is deliberately no fan-out; downstream rows
// reference users inserted moments earlier, and ordering keeps that simple.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bugingest/internal/bugzilla"
	"bugingest/internal/config"
	"bugingest/internal/metrics"
	"bugingest/internal/schema"
	"bugingest/internal/snapshot"
	"bugingest/internal/storage"
)

const defaultLogEvery = 500

// Stats summarizes one run.
type Stats struct {
	Files      int   // snapshot blobs seen
	Ingested   int   // records fully written
	Skipped    int   // blobs flagged as failed fetches
	Duplicates int   // byte-identical blobs seen again this run
	Failed     int   // unreadable, malformed, or unwritable records
	Rows       int64 // rows handed to the writer across all tables
}

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}

	listSnapshotsFn = snapshot.List
)

// Run executes one ingestion run described by cfg. Setup failures (missing
// directory, unreachable database) abort with an error; per-record failures
// are logged, counted in Stats, and do not stop the run.
func Run(ctx context.Context, log zerolog.Logger, cfg config.Pipeline) (Stats, error) {
	runID := uuid.NewString()
	log = log.With().Str("job", cfg.Job).Str("run_id", runID).Logger()

	var stats Stats

	paths, err := listSnapshotsFn(cfg.Source.Dir.Path)
	if err != nil {
		return stats, fmt.Errorf("list snapshots: %w", err)
	}
	log.Info().Int("files", len(paths)).Str("dir", cfg.Source.Dir.Path).Msg("run started")

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind: cfg.Storage.Kind,
		DSN:  cfg.Storage.DB.DSN,
	})
	if err != nil {
		return stats, fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	if cfg.Storage.DB.AutoCreateTables {
		if err := storage.EnsureTables(ctx, repo, cfg.Storage.Kind); err != nil {
			return stats, fmt.Errorf("apply DDL: %w", err)
		}
	}

	logEvery := cfg.Runtime.LogEvery
	if logEvery <= 0 {
		logEvery = defaultLogEvery
	}

	loader := snapshot.NewLoader()
	extractor := bugzilla.Extractor{ReportColumns: schema.ReportColumnOrder()}
	start := time.Now()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Files++

		outcome := ingestOne(ctx, log, loader, extractor, repo, cfg.Job, path, &stats)
		metrics.RecordOutcome(cfg.Job, outcome)

		switch outcome {
		case "ingested":
			stats.Ingested++
		case "skipped":
			stats.Skipped++
		case "duplicate":
			stats.Duplicates++
		case "failed":
			stats.Failed++
		}

		if stats.Files%logEvery == 0 {
			log.Info().
				Int("files", stats.Files).
				Int("ingested", stats.Ingested).
				Int("failed", stats.Failed).
				Msg("progress")
		}
	}

	log.Info().
		Int("files", stats.Files).
		Int("ingested", stats.Ingested).
		Int("skipped", stats.Skipped).
		Int("duplicates", stats.Duplicates).
		Int("failed", stats.Failed).
		Int64("rows", stats.Rows).
		Dur("elapsed", time.Since(start)).
		Msg("run finished")

	return stats, nil
}

// ingestOne processes a single snapshot blob and returns its outcome status:
// "ingested", "skipped", "duplicate", or "failed".
func ingestOne(
	ctx context.Context,
	log zerolog.Logger,
	loader *snapshot.Loader,
	extractor bugzilla.Extractor,
	repo storage.Repository,
	job, path string,
	stats *Stats,
) string {
	loadStart := time.Now()
	rec, digest, err := loader.Load(path)
	metrics.RecordStep(job, "load", err, time.Since(loadStart))
	if err != nil {
		var dup *snapshot.DuplicateError
		switch {
		case errors.Is(err, snapshot.ErrFetchError):
			log.Debug().Str("file", path).Msg("skipping failed fetch")
			return "skipped"
		case errors.As(err, &dup):
			log.Warn().Str("file", path).Str("first", dup.First).
				Str("digest", fmt.Sprintf("%016x", dup.Digest)).
				Msg("duplicate snapshot content")
			return "duplicate"
		default:
			log.Error().Err(err).Str("file", path).Msg("load failed")
			return "failed"
		}
	}

	extractStart := time.Now()
	plan, err := buildPlan(extractor, rec)
	metrics.RecordStep(job, "extract", err, time.Since(extractStart))
	if err != nil {
		log.Error().Err(err).Str("file", path).
			Str("digest", fmt.Sprintf("%016x", digest)).
			Msg("extract failed")
		return "failed"
	}

	writeStart := time.Now()
	err = repo.WriteRecord(ctx, plan)
	metrics.RecordStep(job, "write", err, time.Since(writeStart))
	if err != nil {
		log.Error().Err(err).Str("file", path).Int64("bug_id", plan.BugID).
			Msg("write failed")
		return "failed"
	}

	for _, w := range plan.Writes {
		n := int64(len(w.Rows))
		stats.Rows += n
		metrics.RecordRows(job, w.Table.Name, n)
	}
	log.Debug().Int64("bug_id", plan.BugID).Str("file", path).Msg("ingested")
	return "ingested"
}

// buildPlan runs the pure middle of the pipeline: extraction, report
// imputation, and write planning.
func buildPlan(extractor bugzilla.Extractor, rec bugzilla.Record) (*storage.Plan, error) {
	rows, err := extractor.Extract(rec)
	if err != nil {
		return nil, err
	}
	if err := schema.ImputeReport(rows.Report); err != nil {
		return nil, err
	}
	return storage.BuildPlan(rows)
}
