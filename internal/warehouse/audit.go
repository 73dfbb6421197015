package warehouse

import (
	"context"
	"log"
	"time"

	"saferoad/internal/storage"
)

// AuditLog appends per-stage run records to etl_log. Records are immutable
// and accumulate across all historical runs; nothing here updates or deletes.
type AuditLog struct {
	repo storage.Repository
}

// NewAuditLog wraps repo for audit writes.
func NewAuditLog(repo storage.Repository) *AuditLog {
	return &AuditLog{repo: repo}
}

// maxErrorText bounds the error description persisted with a failed stage.
const maxErrorText = 2000

// RecordStage appends one audit row for a stage attempt. stageErr == nil
// records status OK; otherwise status ERRO with a truncated error text. A
// failure to write the audit record is logged and returned, but callers that
// are already failing must prefer the original stage error over this one.
func (a *AuditLog) RecordStage(ctx context.Context, stage string, start, end time.Time, rows int64, stageErr error) error {
	rec := storage.AuditRecord{
		Stage:  stage,
		Rows:   rows,
		Start:  start,
		End:    end,
		Status: storage.StatusOK,
	}
	if stageErr != nil {
		rec.Status = storage.StatusError
		rec.Err = truncate(stageErr.Error(), maxErrorText)
	}
	if err := a.repo.InsertAuditRecord(ctx, rec); err != nil {
		log.Printf("audit: failed to record stage %s: %v", stage, err)
		return err
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
