package warehouse

import "log"

// DimStats counts resolver outcomes for one dimension within a run.
// Lookups counts cache hits plus storage hits; Inserted counts new rows.
type DimStats struct {
	Inserted int64
	Lookups  int64
}

// Stats aggregates the per-run load telemetry exposed to the notifier and the
// metrics backend. It is owned by a Session and never shared across runs.
type Stats struct {
	Dims                map[string]*DimStats
	FactInsertedRows    int64
	FactBatches         int64
	FactSkippedNullKeys int64

	order []string
}

func newStats(dims []Dimension) *Stats {
	s := &Stats{
		Dims:  make(map[string]*DimStats, len(dims)),
		order: make([]string, 0, len(dims)),
	}
	for _, d := range dims {
		s.Dims[d.Name] = &DimStats{}
		s.order = append(s.order, d.Name)
	}
	return s
}

// LogSummary prints the end-of-run summary in the shape the operators expect.
func (s *Stats) LogSummary() {
	log.Printf("load summary:")
	for _, name := range s.order {
		ds := s.Dims[name]
		log.Printf("  %s: %d new keys, %d lookups", name, ds.Inserted, ds.Lookups)
	}
	log.Printf("  facts: %d rows in %d batch(es)", s.FactInsertedRows, s.FactBatches)
	log.Printf("  rows skipped for null keys: %d", s.FactSkippedNullKeys)
}
