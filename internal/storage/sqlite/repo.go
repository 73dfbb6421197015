// Package sqlite implements the warehouse storage.Repository on
// modernc.org/sqlite via database/sql. It exists for embedded runs and for
// hermetic tests; SQLite has no COPY, so fact batches are prepared INSERTs
// inside one transaction per CopyInto call.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"saferoad/internal/storage"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the SQLite database at cfg.DSN (a file path or
// "file:..." URI; ":memory:" works for tests) and pings it to fail fast.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// Lookups and inserts interleave on one logical connection.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	return &Repository{db: db}, nil
}

// EnsureSchema applies the warehouse DDL (see schema.go).
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return nil
}

// warehouseTables lists the tables emptied on full reload, fact first so the
// foreign keys never dangle.
var warehouseTables = []string{
	"fato_acidentes",
	"dim_tempo",
	"dim_vitima",
	"dim_localidade",
	"dim_veiculo",
	"dim_pista",
	"dim_acidente",
	"dim_cnd_meteorologica",
}

// TruncateWarehouse deletes all warehouse rows and resets the AUTOINCREMENT
// sequences, the closest SQLite gets to TRUNCATE ... RESTART IDENTITY.
func (r *Repository) TruncateWarehouse(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin truncate: %w", err)
	}
	defer tx.Rollback()

	for _, table := range warehouseTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlite: truncate %s: %w", table, err)
		}
	}
	quoted := make([]string, len(warehouseTables))
	for i, t := range warehouseTables {
		quoted[i] = "'" + t + "'"
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sqlite_sequence WHERE name IN ("+strings.Join(quoted, ",")+")",
	); err != nil {
		return fmt.Errorf("sqlite: reset sequences: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit truncate: %w", err)
	}
	return nil
}

// LookupDimension finds the newest surrogate key matching the natural key.
// SQLite's IS operator gives the null-safe equality the time dimension needs.
func (r *Repository) LookupDimension(ctx context.Context, dim storage.DimensionTable, key []any) (int64, bool, error) {
	if len(key) != len(dim.KeyColumns) {
		return 0, false, fmt.Errorf("sqlite: %s: key has %d values, want %d", dim.Table, len(key), len(dim.KeyColumns))
	}
	conds := make([]string, len(dim.KeyColumns))
	for i, col := range dim.KeyColumns {
		conds[i] = col + " IS ?"
	}
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY %s DESC LIMIT 1",
		dim.IDColumn, dim.Table, strings.Join(conds, " AND "), dim.IDColumn,
	)
	var id int64
	err := r.db.QueryRowContext(ctx, q, normalizeValues(key)...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: lookup %s: %w", dim.Table, err)
	}
	return id, true, nil
}

// InsertDimension inserts a new dimension row and returns last_insert_rowid.
func (r *Repository) InsertDimension(ctx context.Context, dim storage.DimensionTable, key []any) (int64, error) {
	if len(key) != len(dim.KeyColumns) {
		return 0, fmt.Errorf("sqlite: %s: key has %d values, want %d", dim.Table, len(key), len(dim.KeyColumns))
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(key)), ",")
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		dim.Table, strings.Join(dim.KeyColumns, ","), ph,
	)
	res, err := r.db.ExecContext(ctx, q, normalizeValues(key)...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert %s: %w", dim.Table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert %s: last id: %w", dim.Table, err)
	}
	return id, nil
}

// CopyInto inserts rows via a prepared statement inside one committed
// transaction.
func (r *Repository) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), ph)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert %s: %w", table, err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return inserted, fmt.Errorf("sqlite: %s: row length %d != columns length %d", table, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, normalizeValues(row)...); err != nil {
			return inserted, fmt.Errorf("sqlite: insert %s: %w", table, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("sqlite: commit %s: %w", table, err)
	}
	return inserted, nil
}

// InsertAuditRecord appends one etl_log row.
func (r *Repository) InsertAuditRecord(ctx context.Context, rec storage.AuditRecord) error {
	dur := math.Round(rec.End.Sub(rec.Start).Seconds()*100) / 100
	var errText any
	if rec.Err != "" {
		errText = rec.Err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO etl_log (etapa, registros_processados, inicio, fim, duracao_segundos, status, erro)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Stage, rec.Rows, normalizeValue(rec.Start), normalizeValue(rec.End), dur, rec.Status, errText,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert etl_log: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (r *Repository) Close() { _ = r.db.Close() }

// normalizeValue maps Go values onto stable SQLite representations. Dates and
// timestamps become fixed-layout text so that lookup equality matches insert
// output exactly.
func normalizeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	return v
}

func normalizeValues(vals []any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = normalizeValue(v)
	}
	return out
}
