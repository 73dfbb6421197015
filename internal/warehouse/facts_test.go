package warehouse

import (
	"context"
	"errors"
	"testing"
)

func newTestBuffer(repo *memRepo, batchSize int) (*FactBuffer, *Stats) {
	stats := newStats(nil)
	return NewFactBuffer(repo, "facts", []string{"a", "b"}, batchSize, stats), stats
}

func TestFactBufferBatching(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	buf, stats := newTestBuffer(repo, 3)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if err := buf.Add(ctx, []any{i, i * 10}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if err := buf.Flush(ctx); err != nil {
		t.Fatalf("final flush: %v", err)
	}

	wantBatches := []int{3, 3, 1}
	if len(repo.batchSizes) != len(wantBatches) {
		t.Fatalf("got %d batches %v, want %v", len(repo.batchSizes), repo.batchSizes, wantBatches)
	}
	for i, n := range wantBatches {
		if repo.batchSizes[i] != n {
			t.Errorf("batch %d has %d rows, want %d", i, repo.batchSizes[i], n)
		}
	}
	if stats.FactInsertedRows != 7 || stats.FactBatches != 3 {
		t.Errorf("stats rows=%d batches=%d, want 7/3", stats.FactInsertedRows, stats.FactBatches)
	}
	if buf.Pending() != 0 {
		t.Errorf("pending = %d after final flush, want 0", buf.Pending())
	}
}

func TestFactBufferEmptyFlush(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	buf, stats := newTestBuffer(repo, 3)

	if err := buf.Flush(context.Background()); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
	if len(repo.batchSizes) != 0 || stats.FactBatches != 0 {
		t.Error("empty flush must not reach storage or count a batch")
	}
}

func TestFactBufferRowWidth(t *testing.T) {
	t.Parallel()

	buf, _ := newTestBuffer(newMemRepo(), 3)
	if err := buf.Add(context.Background(), []any{1}); err == nil {
		t.Fatal("short row accepted, want error")
	}
}

func TestFactBufferKeepsRowsOnError(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	repo.failCopy = errors.New("connection reset")
	buf, stats := newTestBuffer(repo, 2)
	ctx := context.Background()

	if err := buf.Add(ctx, []any{1, 2}); err != nil {
		t.Fatal(err)
	}
	err := buf.Add(ctx, []any{3, 4}) // triggers the implicit flush
	if err == nil {
		t.Fatal("flush error not propagated")
	}
	if buf.Pending() != 2 {
		t.Errorf("pending = %d after failed flush, want 2", buf.Pending())
	}
	if stats.FactInsertedRows != 0 {
		t.Errorf("rows counted despite failed flush: %d", stats.FactInsertedRows)
	}
}
