// Package pipeline sequences the EXTRACT → TRANSFORM → LOAD stages, wiring
// the audit log, metrics, and notifications at the stage boundaries. Stage
// work itself lives in the extract, transform, and warehouse packages.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"saferoad/internal/config"
	"saferoad/internal/extract"
	"saferoad/internal/metrics"
	"saferoad/internal/notify"
	"saferoad/internal/storage"
	"saferoad/internal/transform"
	"saferoad/internal/warehouse"
	"saferoad/pkg/records"
)

// Stage labels as persisted in etl_log. The historical values are uppercase.
const (
	StageExtract   = "EXTRACT"
	StageTransform = "TRANSFORM"
	StageLoad      = "LOAD"
)

// extractor is the seam between the pipeline and the download stage.
type extractor interface {
	Run(ctx context.Context) ([]records.Record, error)
}

// Pipeline runs one full warehouse reload.
type Pipeline struct {
	cfg      config.Job
	repo     storage.Repository
	notifier notify.Notifier

	extractor   extractor
	transformFn func([]records.Record) []records.Record
}

// New assembles a pipeline from the job configuration, an open repository,
// and a notifier (use notify.Nop when notifications are not configured).
func New(cfg config.Job, repo storage.Repository, notifier notify.Notifier) *Pipeline {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Pipeline{
		cfg:         cfg,
		repo:        repo,
		notifier:    notifier,
		extractor:   extract.New(cfg.Extract),
		transformFn: transform.Apply,
	}
}

// Run executes the three stages in order. Every attempted stage leaves an
// audit row; the first failing stage aborts the run after the audit write and
// failure notification. The returned error is always the stage error, never
// an audit or notification error.
func (p *Pipeline) Run(ctx context.Context) error {
	runStart := time.Now()
	audit := warehouse.NewAuditLog(p.repo)
	var stages []notify.StageDuration

	if err := p.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	// runStage handles the per-stage bookkeeping: timing, audit row, metrics,
	// and the failure notification.
	runStage := func(name string, fn func() (int64, error)) (int64, error) {
		log.Printf("stage %s: starting", name)
		start := time.Now()
		rows, err := fn()
		end := time.Now()
		elapsed := end.Sub(start)

		metrics.RecordStage(p.cfg.Job, name, err, elapsed)
		// Audit failures are logged inside RecordStage; they never replace
		// the stage result.
		_ = audit.RecordStage(ctx, name, start, end, rows, err)

		if err != nil {
			p.notifier.StageFailed(ctx, p.cfg.Job, name, err, elapsed)
			return rows, fmt.Errorf("stage %s: %w", name, err)
		}
		stages = append(stages, notify.StageDuration{Stage: name, Elapsed: elapsed})
		log.Printf("stage %s: done in %s (%d rows)", name, elapsed.Truncate(time.Millisecond), rows)
		return rows, nil
	}

	var recs []records.Record
	if _, err := runStage(StageExtract, func() (int64, error) {
		var err error
		recs, err = p.extractor.Run(ctx)
		return int64(len(recs)), err
	}); err != nil {
		p.flushMetrics()
		return err
	}

	if _, err := runStage(StageTransform, func() (int64, error) {
		recs = p.transformFn(recs)
		return int64(len(recs)), nil
	}); err != nil {
		p.flushMetrics()
		return err
	}

	session := warehouse.NewSession(p.repo, p.cfg.Load.BatchSize, p.cfg.Load.ProgressEvery)
	inserted, err := runStage(StageLoad, func() (int64, error) {
		return session.Load(ctx, recs)
	})
	stats := session.Stats()
	p.recordRunCounters(int64(len(recs)), stats)
	if err != nil {
		p.flushMetrics()
		return err
	}

	stats.LogSummary()
	p.notifier.RunSucceeded(ctx, notify.RunReport{
		Job:         p.cfg.Job,
		FactRows:    inserted,
		FactBatches: stats.FactBatches,
		SkippedRows: stats.FactSkippedNullKeys,
		Stages:      stages,
		Total:       time.Since(runStart),
	})
	p.flushMetrics()
	return nil
}

func (p *Pipeline) recordRunCounters(extracted int64, stats *warehouse.Stats) {
	metrics.RecordRows(p.cfg.Job, "extracted", extracted)
	metrics.RecordRows(p.cfg.Job, "facts_inserted", stats.FactInsertedRows)
	metrics.RecordRows(p.cfg.Job, "skipped_null_keys", stats.FactSkippedNullKeys)
	metrics.RecordBatches(p.cfg.Job, stats.FactBatches)
	var dimsInserted int64
	for _, ds := range stats.Dims {
		dimsInserted += ds.Inserted
	}
	metrics.RecordRows(p.cfg.Job, "dims_inserted", dimsInserted)
}

func (p *Pipeline) flushMetrics() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush failed: %v", err)
	}
}
