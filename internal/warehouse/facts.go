package warehouse

import (
	"context"
	"fmt"

	"saferoad/internal/storage"
)

// FactBuffer accumulates resolved fact tuples and flushes them in fixed-size
// batches via the repository's bulk insert. Every flush commits on its own;
// a crash between flushes loses at most the unflushed remainder, never half a
// batch.
type FactBuffer struct {
	repo      storage.Repository
	table     string
	columns   []string
	batchSize int
	buf       [][]any
	stats     *Stats
}

// NewFactBuffer builds a buffer flushing every batchSize rows into table.
func NewFactBuffer(repo storage.Repository, table string, columns []string, batchSize int, stats *Stats) *FactBuffer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &FactBuffer{
		repo:      repo,
		table:     table,
		columns:   columns,
		batchSize: batchSize,
		buf:       make([][]any, 0, batchSize),
		stats:     stats,
	}
}

// Add appends one fact tuple and flushes implicitly when the buffer reaches
// the batch size.
func (b *FactBuffer) Add(ctx context.Context, row []any) error {
	if len(row) != len(b.columns) {
		return fmt.Errorf("fact row has %d values, want %d", len(row), len(b.columns))
	}
	b.buf = append(b.buf, row)
	if len(b.buf) >= b.batchSize {
		return b.Flush(ctx)
	}
	return nil
}

// Flush bulk-inserts and commits the buffered tuples. Flushing an empty
// buffer is a no-op. On error the buffer is left intact so the caller can
// report how far the run got.
func (b *FactBuffer) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	n, err := b.repo.CopyInto(ctx, b.table, b.columns, b.buf)
	if err != nil {
		return fmt.Errorf("flush %s: %w", b.table, err)
	}
	b.stats.FactInsertedRows += n
	b.stats.FactBatches++
	b.buf = b.buf[:0]
	return nil
}

// Pending reports how many tuples are buffered but not yet flushed.
func (b *FactBuffer) Pending() int { return len(b.buf) }
