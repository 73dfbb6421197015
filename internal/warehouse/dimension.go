// Package warehouse implements the dimensional upsert engine of the load
// stage: seven descriptor-driven dimension resolvers, the fact batching
// buffer, and the run audit log, all owned by a per-run Session.
package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"saferoad/internal/storage"
	"saferoad/pkg/records"
)

// Dimension describes one dimension table and how to derive its natural key
// from a transformed record. The resolver logic is identical for all seven;
// only the descriptor differs.
type Dimension struct {
	// Name labels the dimension in stats and logs (e.g. "dim_acidente").
	Name string

	// Table is the physical table shape handed to the storage backend.
	Table storage.DimensionTable

	// Key extracts the natural-key tuple, aligned with Table.KeyColumns.
	// A nil return marks the row unresolvable for this dimension; the
	// orchestrator then skips the whole fact row.
	Key func(records.Record) []any
}

// resolver performs get-or-create resolution for one dimension with a
// run-scoped cache in front of storage. Storage stays authoritative: a cache
// miss always falls through to a lookup before inserting.
type resolver struct {
	dim   Dimension
	repo  storage.Repository
	cache map[xxh3.Uint128]int64
	stats *DimStats
}

func newResolver(dim Dimension, repo storage.Repository, stats *DimStats) *resolver {
	return &resolver{
		dim:   dim,
		repo:  repo,
		cache: make(map[xxh3.Uint128]int64),
		stats: stats,
	}
}

// resolve returns the surrogate key for the record's natural key, inserting a
// new dimension row on first encounter. A (0, nil) return means the key was
// unresolvable and the caller must apply the skip rule.
func (r *resolver) resolve(ctx context.Context, rec records.Record) (int64, error) {
	key := r.dim.Key(rec)
	if key == nil {
		return 0, nil
	}
	if len(key) != len(r.dim.Table.KeyColumns) {
		return 0, fmt.Errorf("%s: key has %d values, want %d", r.dim.Name, len(key), len(r.dim.Table.KeyColumns))
	}

	fp := fingerprint(key)
	if id, ok := r.cache[fp]; ok {
		r.stats.Lookups++
		return id, nil
	}

	id, found, err := r.repo.LookupDimension(ctx, r.dim.Table, key)
	if err != nil {
		return 0, fmt.Errorf("%s: lookup: %w", r.dim.Name, err)
	}
	if found {
		r.cache[fp] = id
		r.stats.Lookups++
		return id, nil
	}

	id, err = r.repo.InsertDimension(ctx, r.dim.Table, key)
	if err != nil {
		return 0, fmt.Errorf("%s: insert: %w", r.dim.Name, err)
	}
	r.cache[fp] = id
	r.stats.Inserted++
	return id, nil
}

// resetCache drops the run-scoped cache. Storage remains authoritative, so
// subsequent resolves re-read the same surrogate keys.
func (r *resolver) resetCache() {
	r.cache = make(map[xxh3.Uint128]int64)
}

// fingerprint hashes the encoded natural-key tuple into the cache key. The
// encoding is type-stable so equal tuples always collide and distinct ones
// practically never do (128-bit xxh3).
func fingerprint(key []any) xxh3.Uint128 {
	var b strings.Builder
	for i, v := range key {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch t := v.(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(t)
		case int:
			b.WriteString(strconv.Itoa(t))
		case int64:
			b.WriteString(strconv.FormatInt(t, 10))
		case float64:
			b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		case time.Time:
			b.WriteString(t.UTC().Format(time.RFC3339))
		default:
			b.WriteString(fmt.Sprint(t))
		}
	}
	return xxh3.HashString128(b.String())
}
