// Package sqlite provides a SQLite-backed import store for local use and
// the hrimport CLI.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	_ "modernc.org/sqlite"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/store/sqlite/migrations"
)

const dateLayout = "2006-01-02"

// Store persists imports in SQLite.
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// Open opens a SQLite store at path and applies the embedded migrations.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Begin starts an import transaction.
func (s *Store) Begin(ctx context.Context) (core.StoreTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &storeTx{tx: tx}, nil
}

// ListImports returns up to limit import log entries, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]core.ImportLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, file_name, status, row_count, permission_rows, error, started_at, duration_ms
		   FROM import_logs
		  ORDER BY started_at DESC, rowid DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []core.ImportLog
	for rows.Next() {
		var (
			entry     core.ImportLog
			id        string
			status    string
			startedAt int64
		)
		if err := rows.Scan(&id, &entry.Kind, &entry.FileName, &status, &entry.Rows,
			&entry.PermissionRows, &entry.Error, &startedAt, &entry.DurationMillis); err != nil {
			return nil, err
		}
		if entry.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("import log %q: %w", id, err)
		}
		entry.Status = core.ImportStatus(status)
		entry.StartedAt = time.UnixMilli(startedAt).UTC()
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// PruneImports deletes import log entries that started before the cutoff.
func (s *Store) PruneImports(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM import_logs WHERE started_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type storeTx struct {
	tx *sql.Tx
}

// InsertEmployees assigns each employee a new ID client side, since SQLite
// has no UUID generator.
func (t *storeTx) InsertEmployees(ctx context.Context, emps []core.Employee) ([]core.Employee, error) {
	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO employees (id, employee_number, first_name, last_name, email,
		                        department, job_title, hire_date, active, import_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	out := make([]core.Employee, len(emps))
	for i, e := range emps {
		e.ID = core.NewPgUUID()
		if _, err := stmt.ExecContext(ctx,
			uuidValue(e.ID), e.EmployeeNumber,
			textValue(e.FirstName), textValue(e.LastName), textValue(e.Email),
			textValue(e.Department), textValue(e.JobTitle),
			dateValue(e.HireDate), boolValue(e.Active), uuidValue(e.ImportID),
		); err != nil {
			return nil, fmt.Errorf("employee %s: %w", e.EmployeeNumber, err)
		}
		out[i] = e
	}
	return out, nil
}

func (t *storeTx) InsertDepartments(ctx context.Context, depts []core.Department) error {
	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO departments (code, name, parent_code, import_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range depts {
		if _, err := stmt.ExecContext(ctx, d.Code, textValue(d.Name), textValue(d.ParentCode), uuidValue(d.ImportID)); err != nil {
			return fmt.Errorf("department %s: %w", d.Code, err)
		}
	}
	return nil
}

func (t *storeTx) InsertPermissions(ctx context.Context, perms []core.ObjectPermission) error {
	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO object_permissions (employee_id, object_type, object_id, permission, import_id)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range perms {
		if _, err := stmt.ExecContext(ctx, uuidValue(p.EmployeeID), p.ObjectType, p.ObjectID, p.Permission, uuidValue(p.ImportID)); err != nil {
			return fmt.Errorf("permission %s/%s for %s: %w", p.ObjectType, p.ObjectID, p.EmployeeNumber, err)
		}
	}
	return nil
}

func (t *storeTx) InsertImportLog(ctx context.Context, entry core.ImportLog) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO import_logs (id, kind, file_name, status, row_count, permission_rows, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.Kind, entry.FileName, string(entry.Status),
		entry.Rows, entry.PermissionRows, entry.Error,
		entry.StartedAt.UTC().UnixMilli(), entry.DurationMillis,
	)
	return err
}

func (t *storeTx) Commit(context.Context) error {
	return t.tx.Commit()
}

// Rollback is a no-op after Commit.
func (t *storeTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func textValue(t pgtype.Text) any {
	if !t.Valid {
		return nil
	}
	return t.String
}

func dateValue(d pgtype.Date) any {
	if !d.Valid {
		return nil
	}
	return d.Time.Format(dateLayout)
}

func boolValue(b pgtype.Bool) any {
	if !b.Valid {
		return nil
	}
	if b.Bool {
		return 1
	}
	return 0
}

func uuidValue(u pgtype.UUID) any {
	if !u.Valid {
		return nil
	}
	return core.PgUUIDToString(u)
}
