// Package storage contains the backend-agnostic warehouse repository contract
// and the factory that backend packages register themselves with.
//
// The load engine only ever talks to the Repository interface; concrete
// backends (Postgres, SQLite) live in subpackages and are wired in via blank
// imports of storage/all, mirroring how the rest of the application stays
// decoupled from any one database.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DimensionTable describes the physical shape of one dimension: its table,
// surrogate-key column, and the ordered natural-key columns. The load engine
// passes this alongside the key values so backends can build their own SQL
// with their own placeholder styles.
type DimensionTable struct {
	Table      string
	IDColumn   string
	KeyColumns []string
}

// AuditRecord is one immutable etl_log row. Duration is derived from the
// start/end timestamps by the backend.
type AuditRecord struct {
	Stage  string
	Rows   int64
	Start  time.Time
	End    time.Time
	Status string // "OK" or "ERRO"
	Err    string // empty on success
}

// Audit status labels. Kept in the source locale for compatibility with the
// existing etl_log contents.
const (
	StatusOK    = "OK"
	StatusError = "ERRO"
)

// Repository is the storage contract of the warehouse loader. Implementations
// are not safe for concurrent use; the load stage is single-threaded by
// design.
type Repository interface {
	// EnsureSchema creates the warehouse tables, indexes, and the audit log
	// table when absent. It never drops or rewrites existing data.
	EnsureSchema(ctx context.Context) error

	// TruncateWarehouse empties the fact table and every dimension table and
	// resets their surrogate-key sequences. Full reloads only.
	TruncateWarehouse(ctx context.Context) error

	// LookupDimension returns the surrogate key of the dimension row matching
	// the natural key exactly (null-safe equality). When duplicate rows exist
	// the newest surrogate key wins. The bool reports whether a row was found.
	LookupDimension(ctx context.Context, dim DimensionTable, key []any) (int64, bool, error)

	// InsertDimension inserts a new dimension row and returns its generated
	// surrogate key.
	InsertDimension(ctx context.Context, dim DimensionTable, key []any) (int64, error)

	// CopyInto bulk-inserts rows into table and commits. Each call is its own
	// unit of work; a failure rolls back only the rows of this call.
	CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// InsertAuditRecord appends one etl_log row. Must remain callable after a
	// failed stage.
	InsertAuditRecord(ctx context.Context, rec AuditRecord) error

	// Close releases the underlying connections.
	Close()
}

// Config selects and configures a storage backend.
type Config struct {
	// Kind selects the backend implementation: "postgres" or "sqlite".
	Kind string

	// DSN is the backend connection string.
	DSN string

	// PageSize bounds the number of rows sent per bulk-insert statement
	// within one CopyInto unit of work. <= 0 means backend default.
	PageSize int
}

// Factory opens a Repository for a Config. Backend packages register one per
// kind from their init functions.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind. Typically called
// from backend init() functions.
func Register(kind string, fn Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	factoryMu.RLock()
	fn, ok := factories[cfg.Kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no storage backend registered for kind=%q", cfg.Kind)
	}
	return fn(ctx, cfg)
}
