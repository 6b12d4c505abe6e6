// Package postgres provides the PostgreSQL import store used by the server.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/store/postgres/migrations"
)

// PoolOptions tunes the connection pool. Zero fields keep the pgxpool
// defaults.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store persists imports in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Connect opens a pool for databaseURL, verifies it and applies the schema.
func Connect(ctx context.Context, databaseURL string, opts PoolOptions) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := New(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool. The schema is not touched.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// DatabaseName returns the database name in databaseURL, for logging.
func DatabaseName(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Migrate executes every embedded migration in name order. Migrations are
// written to be re-runnable.
func (s *Store) Migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		// No arguments, so pgx uses the simple protocol and accepts
		// multiple statements.
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("migration %s: %w", file, err)
		}
	}
	return nil
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Begin starts an import transaction.
func (s *Store) Begin(ctx context.Context) (core.StoreTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &storeTx{tx: tx}, nil
}

// ListImports returns up to limit import log entries, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]core.ImportLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, file_name, status, row_count, permission_rows, error, started_at, duration_ms
		   FROM import_logs
		  ORDER BY started_at DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ImportLog, error) {
		var (
			entry  core.ImportLog
			id     pgtype.UUID
			status string
		)
		err := row.Scan(&id, &entry.Kind, &entry.FileName, &status, &entry.Rows,
			&entry.PermissionRows, &entry.Error, &entry.StartedAt, &entry.DurationMillis)
		entry.ID = uuid.UUID(id.Bytes)
		entry.Status = core.ImportStatus(status)
		entry.StartedAt = entry.StartedAt.UTC()
		return entry, err
	})
}

// PruneImports deletes import log entries that started before the cutoff.
func (s *Store) PruneImports(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM import_logs WHERE started_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type storeTx struct {
	tx pgx.Tx
}

const insertEmployee = `
INSERT INTO employees (employee_number, first_name, last_name, email,
                       department, job_title, hire_date, active, import_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

// InsertEmployees sends all rows in one batch and reads back the generated IDs.
func (t *storeTx) InsertEmployees(ctx context.Context, emps []core.Employee) ([]core.Employee, error) {
	batch := &pgx.Batch{}
	for _, e := range emps {
		batch.Queue(insertEmployee,
			e.EmployeeNumber, e.FirstName, e.LastName, e.Email,
			e.Department, e.JobTitle, e.HireDate, e.Active, e.ImportID)
	}

	results := t.tx.SendBatch(ctx, batch)
	out := make([]core.Employee, len(emps))
	for i, e := range emps {
		if err := results.QueryRow().Scan(&e.ID); err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("employee %s: %w", e.EmployeeNumber, err)
		}
		out[i] = e
	}
	if err := results.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *storeTx) InsertDepartments(ctx context.Context, depts []core.Department) error {
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"departments"},
		[]string{"code", "name", "parent_code", "import_id"},
		pgx.CopyFromSlice(len(depts), func(i int) ([]any, error) {
			d := depts[i]
			return []any{d.Code, d.Name, d.ParentCode, d.ImportID}, nil
		}),
	)
	return err
}

func (t *storeTx) InsertPermissions(ctx context.Context, perms []core.ObjectPermission) error {
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"object_permissions"},
		[]string{"employee_id", "object_type", "object_id", "permission", "import_id"},
		pgx.CopyFromSlice(len(perms), func(i int) ([]any, error) {
			p := perms[i]
			return []any{p.EmployeeID, p.ObjectType, p.ObjectID, p.Permission, p.ImportID}, nil
		}),
	)
	return err
}

func (t *storeTx) InsertImportLog(ctx context.Context, entry core.ImportLog) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO import_logs (id, kind, file_name, status, row_count, permission_rows, error, started_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pgtype.UUID{Bytes: entry.ID, Valid: true}, entry.Kind, entry.FileName, string(entry.Status),
		entry.Rows, entry.PermissionRows, entry.Error, entry.StartedAt, entry.DurationMillis,
	)
	return err
}

func (t *storeTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback is a no-op after Commit.
func (t *storeTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
