package warehouse

import (
	"context"
	"log"

	"saferoad/internal/coerce"
	"saferoad/internal/storage"
	"saferoad/pkg/records"
)

// defaultProgressEvery is the row cadence for progress log lines.
const defaultProgressEvery = 50_000

// Session owns all mutable load-stage state for exactly one run: the seven
// resolvers with their caches, the fact buffer, and the counters. Construct
// one at run start, discard it at run end; nothing here is package state and
// nothing survives across runs.
type Session struct {
	repo          storage.Repository
	resolvers     []*resolver
	facts         *FactBuffer
	stats         *Stats
	progressEvery int
}

// NewSession builds a run-scoped session over repo. batchSize controls fact
// flush granularity; progressEvery <= 0 keeps the default log cadence.
func NewSession(repo storage.Repository, batchSize, progressEvery int) *Session {
	return newSession(repo, Dimensions(), FactTable, batchSize, progressEvery)
}

func newSession(repo storage.Repository, dims []Dimension, factTable string, batchSize, progressEvery int) *Session {
	stats := newStats(dims)
	resolvers := make([]*resolver, len(dims))
	columns := make([]string, 0, len(dims)+len(MeasureColumns))
	for i, d := range dims {
		resolvers[i] = newResolver(d, repo, stats.Dims[d.Name])
		columns = append(columns, d.Table.IDColumn)
	}
	columns = append(columns, MeasureColumns...)
	if progressEvery <= 0 {
		progressEvery = defaultProgressEvery
	}
	return &Session{
		repo:          repo,
		resolvers:     resolvers,
		facts:         NewFactBuffer(repo, factTable, columns, batchSize, stats),
		stats:         stats,
		progressEvery: progressEvery,
	}
}

// Stats exposes the run counters. The pointer stays valid after Load returns,
// including after a failed run.
func (s *Session) Stats() *Stats { return s.stats }

// Load performs the full-reload LOAD stage: truncate the warehouse, then for
// every record resolve the dimension keys, apply the all-or-nothing null-key
// skip rule, and feed the fact buffer; a final flush drains the remainder. It
// returns the number of fact rows inserted.
func (s *Session) Load(ctx context.Context, recs []records.Record) (int64, error) {
	if err := s.repo.TruncateWarehouse(ctx); err != nil {
		return 0, err
	}
	total := len(recs)
	log.Printf("load: inserting facts (rows: %d)…", total)

	for i, rec := range recs {
		row := make([]any, 0, len(s.resolvers)+len(MeasureColumns))
		skip := false
		for _, r := range s.resolvers {
			id, err := r.resolve(ctx, rec)
			if err != nil {
				return s.stats.FactInsertedRows, err
			}
			if id == 0 {
				skip = true
				break
			}
			row = append(row, id)
		}
		if skip {
			s.stats.FactSkippedNullKeys++
			continue
		}

		row = append(row,
			coerce.AsInt(rec.Get("ilesos"), 0),
			coerce.AsInt(rec.Get("feridos_leves"), 0),
			coerce.AsInt(rec.Get("feridos_graves"), 0),
			coerce.AsInt(rec.Get("mortos"), 0),
		)
		if err := s.facts.Add(ctx, row); err != nil {
			return s.stats.FactInsertedRows, err
		}

		if (i+1)%s.progressEvery == 0 {
			log.Printf("load: processed %d/%d (facts inserted: %d)", i+1, total, s.stats.FactInsertedRows)
		}
	}

	if err := s.facts.Flush(ctx); err != nil {
		return s.stats.FactInsertedRows, err
	}
	return s.stats.FactInsertedRows, nil
}

// ResetCaches clears every resolver cache. Used by consistency checks; normal
// runs never need it because a session lives for exactly one run.
func (s *Session) ResetCaches() {
	for _, r := range s.resolvers {
		r.resetCache()
	}
}
