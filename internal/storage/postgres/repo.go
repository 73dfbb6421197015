// Package postgres implements the warehouse storage.Repository on top of
// pgx v5. Dimension lookups and inserts run as single statements on the pool;
// fact batches go through COPY inside a transaction that commits per call, so
// the granularity of atomicity is one batch.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saferoad/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}

// defaultPageSize bounds rows per COPY statement within one transaction,
// matching the paging the warehouse was originally loaded with.
const defaultPageSize = 5000

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool     *pgxpool.Pool
	pageSize int
}

// NewRepository opens a pgx pool for cfg.DSN. Each new connection gets the
// bulk-load session tuning applied (synchronous_commit off, larger work_mem);
// the audit log still becomes durable because COMMIT waits are the only thing
// relaxed, not writes.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	pc.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for _, stmt := range []string{
			"SET synchronous_commit = OFF",
			"SET temp_buffers = '128MB'",
			"SET work_mem = '256MB'",
		} {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Repository{pool: pool, pageSize: pageSize}, nil
}

// EnsureSchema applies the warehouse DDL (see schema.go). Every statement is
// idempotent, so re-running against an existing warehouse is safe.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// TruncateWarehouse empties the star schema in one statement, resetting the
// surrogate-key sequences so reloads are deterministic.
func (r *Repository) TruncateWarehouse(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		TRUNCATE TABLE
			fato_acidentes,
			dim_tempo,
			dim_vitima,
			dim_localidade,
			dim_veiculo,
			dim_pista,
			dim_acidente,
			dim_cnd_meteorologica
		RESTART IDENTITY
		CASCADE`)
	if err != nil {
		return fmt.Errorf("postgres: truncate warehouse: %w", err)
	}
	return nil
}

// LookupDimension finds the newest surrogate key matching the natural key.
// IS NOT DISTINCT FROM gives null-safe equality so absent dates/times in
// dim_tempo still resolve to their row.
func (r *Repository) LookupDimension(ctx context.Context, dim storage.DimensionTable, key []any) (int64, bool, error) {
	if len(key) != len(dim.KeyColumns) {
		return 0, false, fmt.Errorf("postgres: %s: key has %d values, want %d", dim.Table, len(key), len(dim.KeyColumns))
	}
	conds := make([]string, len(dim.KeyColumns))
	for i, col := range dim.KeyColumns {
		conds[i] = fmt.Sprintf("%s IS NOT DISTINCT FROM $%d", pgIdent(col), i+1)
	}
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY %s DESC LIMIT 1",
		pgIdent(dim.IDColumn), pgIdent(dim.Table), strings.Join(conds, " AND "), pgIdent(dim.IDColumn),
	)
	var id int64
	err := r.pool.QueryRow(ctx, q, key...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: lookup %s: %w", dim.Table, err)
	}
	return id, true, nil
}

// InsertDimension inserts a new dimension row and returns the generated
// surrogate key via RETURNING.
func (r *Repository) InsertDimension(ctx context.Context, dim storage.DimensionTable, key []any) (int64, error) {
	if len(key) != len(dim.KeyColumns) {
		return 0, fmt.Errorf("postgres: %s: key has %d values, want %d", dim.Table, len(key), len(dim.KeyColumns))
	}
	ph := make([]string, len(key))
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		pgIdent(dim.Table), strings.Join(mapIdent(dim.KeyColumns), ","), strings.Join(ph, ","), pgIdent(dim.IDColumn),
	)
	var id int64
	if err := r.pool.QueryRow(ctx, q, key...).Scan(&id); err != nil {
		return 0, fmt.Errorf("postgres: insert %s: %w", dim.Table, err)
	}
	return id, nil
}

// CopyInto streams rows into table with COPY, paging at r.pageSize rows per
// statement, inside a single transaction committed before returning.
func (r *Repository) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	for start := 0; start < len(rows); start += r.pageSize {
		end := start + r.pageSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows[start:end]))
		if err != nil {
			return total, fmt.Errorf("postgres: copy into %s: %w", table, err)
		}
		total += n
	}
	if err := tx.Commit(ctx); err != nil {
		return total, fmt.Errorf("postgres: commit %s: %w", table, err)
	}
	return total, nil
}

// InsertAuditRecord appends one etl_log row with the duration computed from
// the stage timestamps, rounded to centiseconds like the NUMERIC(10,2) column.
func (r *Repository) InsertAuditRecord(ctx context.Context, rec storage.AuditRecord) error {
	dur := math.Round(rec.End.Sub(rec.Start).Seconds()*100) / 100
	_, err := r.pool.Exec(ctx, `
		INSERT INTO etl_log (etapa, registros_processados, inicio, fim, duracao_segundos, status, erro)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`,
		rec.Stage, rec.Rows, rec.Start, rec.End, dur, rec.Status, rec.Err,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert etl_log: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() { r.pool.Close() }

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
