package warehouse

import (
	"context"
	"fmt"
	"reflect"

	"saferoad/internal/storage"
)

// memRepo is an in-memory storage.Repository for exercising the load engine
// without a database. Lookup semantics mirror the real backends: exact
// (null-safe) key equality with the newest surrogate key winning.
type memRepo struct {
	dims       map[string][]memDimRow // table -> rows, id ascending
	nextID     map[string]int64
	facts      [][]any
	batchSizes []int
	audits     []storage.AuditRecord

	truncates   int
	lookupCalls map[string]int

	failCopy   error // returned by every CopyInto when set
	failLookup error
	failInsert error
}

type memDimRow struct {
	id  int64
	key []any
}

func newMemRepo() *memRepo {
	return &memRepo{
		dims:        map[string][]memDimRow{},
		nextID:      map[string]int64{},
		lookupCalls: map[string]int{},
	}
}

func (m *memRepo) EnsureSchema(ctx context.Context) error { return nil }

func (m *memRepo) TruncateWarehouse(ctx context.Context) error {
	m.truncates++
	m.dims = map[string][]memDimRow{}
	m.nextID = map[string]int64{}
	m.facts = nil
	m.batchSizes = nil
	return nil
}

func (m *memRepo) LookupDimension(ctx context.Context, dim storage.DimensionTable, key []any) (int64, bool, error) {
	m.lookupCalls[dim.Table]++
	if m.failLookup != nil {
		return 0, false, m.failLookup
	}
	rows := m.dims[dim.Table]
	for i := len(rows) - 1; i >= 0; i-- {
		if reflect.DeepEqual(rows[i].key, key) {
			return rows[i].id, true, nil
		}
	}
	return 0, false, nil
}

func (m *memRepo) InsertDimension(ctx context.Context, dim storage.DimensionTable, key []any) (int64, error) {
	if m.failInsert != nil {
		return 0, m.failInsert
	}
	m.nextID[dim.Table]++
	id := m.nextID[dim.Table]
	k := make([]any, len(key))
	copy(k, key)
	m.dims[dim.Table] = append(m.dims[dim.Table], memDimRow{id: id, key: k})
	return id, nil
}

func (m *memRepo) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if m.failCopy != nil {
		return 0, m.failCopy
	}
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row has %d values, want %d", len(row), len(columns))
		}
		r := make([]any, len(row))
		copy(r, row)
		m.facts = append(m.facts, r)
	}
	m.batchSizes = append(m.batchSizes, len(rows))
	return int64(len(rows)), nil
}

func (m *memRepo) InsertAuditRecord(ctx context.Context, rec storage.AuditRecord) error {
	m.audits = append(m.audits, rec)
	return nil
}

func (m *memRepo) Close() {}
