package warehouse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"saferoad/internal/storage"
)

func TestAuditRecordStage(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	audit := NewAuditLog(repo)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC)
	end := start.Add(95 * time.Second)

	if err := audit.RecordStage(ctx, "load", start, end, 1234, nil); err != nil {
		t.Fatalf("record OK stage: %v", err)
	}
	if err := audit.RecordStage(ctx, "extract", start, end, 0, errors.New("timeout fetching 2024")); err != nil {
		t.Fatalf("record failed stage: %v", err)
	}

	if len(repo.audits) != 2 {
		t.Fatalf("got %d audit rows, want 2", len(repo.audits))
	}

	ok := repo.audits[0]
	if ok.Stage != "load" || ok.Status != storage.StatusOK || ok.Rows != 1234 || ok.Err != "" {
		t.Errorf("OK row = %+v", ok)
	}
	if !ok.Start.Equal(start) || !ok.End.Equal(end) {
		t.Errorf("OK row timestamps = %v / %v", ok.Start, ok.End)
	}

	failed := repo.audits[1]
	if failed.Status != storage.StatusError {
		t.Errorf("failed row status = %q, want %q", failed.Status, storage.StatusError)
	}
	if failed.Err != "timeout fetching 2024" {
		t.Errorf("failed row err = %q", failed.Err)
	}
}

func TestAuditTruncatesLongErrors(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	audit := NewAuditLog(repo)

	long := errors.New(strings.Repeat("x", maxErrorText+500))
	if err := audit.RecordStage(context.Background(), "load", time.Now(), time.Now(), 0, long); err != nil {
		t.Fatal(err)
	}
	if got := len(repo.audits[0].Err); got != maxErrorText {
		t.Errorf("persisted error length = %d, want %d", got, maxErrorText)
	}
}
