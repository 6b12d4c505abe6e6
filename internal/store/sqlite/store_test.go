package sqlite

import (
	"archive/zip"
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	_ "github.com/king-kite/nexthrms-v2-sub002/internal/core/kinds"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "imports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imports.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	var applied int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestOpenMemory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
	assert.Equal(t, 0, count(t, store, "employees"))
}

func TestInsertAndRollback(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	importID := core.NewPgUUID()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	stored, err := tx.InsertEmployees(ctx, []core.Employee{{
		EmployeeNumber: "E1",
		FirstName:      core.ToPgText("Ada"),
		HireDate:       core.ToPgDate("2021-03-01"),
		Active:         core.ToPgBool("yes"),
		ImportID:       importID,
	}})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].ID.Valid)
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, 0, count(t, store, "employees"))
}

func TestInsertCommitted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	importID := core.NewPgUUID()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	stored, err := tx.InsertEmployees(ctx, []core.Employee{{
		EmployeeNumber: "E1",
		FirstName:      core.ToPgText("Ada"),
		HireDate:       core.ToPgDate("2021-03-01"),
		Active:         core.ToPgBool("no"),
		ImportID:       importID,
	}})
	require.NoError(t, err)
	require.NoError(t, tx.InsertDepartments(ctx, []core.Department{{Code: "HR", Name: core.ToPgText("People"), ImportID: importID}}))
	require.NoError(t, tx.InsertPermissions(ctx, []core.ObjectPermission{{
		EmployeeID: stored[0].ID, EmployeeNumber: "E1",
		ObjectType: "project", ObjectID: "p1", Permission: "read", ImportID: importID,
	}}))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	var (
		hireDate string
		active   int
		lastName *string
	)
	require.NoError(t, store.db.QueryRow(
		"SELECT hire_date, active, last_name FROM employees WHERE employee_number = 'E1'",
	).Scan(&hireDate, &active, &lastName))
	assert.Equal(t, "2021-03-01", hireDate)
	assert.Equal(t, 0, active)
	assert.Nil(t, lastName)

	assert.Equal(t, 1, count(t, store, "departments"))
	assert.Equal(t, 1, count(t, store, "object_permissions"))
}

func TestPermissionNeedsEmployee(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = tx.InsertPermissions(ctx, []core.ObjectPermission{{
		EmployeeID: core.NewPgUUID(), EmployeeNumber: "E404",
		ObjectType: "project", ObjectID: "p1", Permission: "read", ImportID: core.NewPgUUID(),
	}})
	require.Error(t, err)
	assert.Equal(t, "DB003", core.MapError(err).Code)
}

func TestListImports(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, name := range []string{"a.csv", "b.csv", "c.csv"} {
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.InsertImportLog(ctx, core.ImportLog{
			ID:             uuid.New(),
			Kind:           core.KindEmployees,
			FileName:       name,
			Status:         core.StatusCommitted,
			Rows:           i + 1,
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			DurationMillis: 12,
		}))
		require.NoError(t, tx.Commit(ctx))
	}

	logs, err := store.ListImports(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c.csv", logs[0].FileName)
	assert.Equal(t, 3, logs[0].Rows)
	assert.True(t, base.Add(2*time.Minute).Equal(logs[0].StartedAt), "started_at = %s", logs[0].StartedAt)
	assert.Equal(t, "b.csv", logs[1].FileName)

	n, err := store.PruneImports(ctx, base.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, count(t, store, "import_logs"))
}

func zipOf(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestServiceArchiveImport(t *testing.T) {
	store := openTestStore(t)
	svc := core.NewService(store, core.Options{})
	ctx := context.Background()

	archive := zipOf(t, map[string]string{
		"employees.csv":   "employee_number,first_name,last_name,email\nE1,Ada,Lovelace,ada@example.com\nE2,Grace,Hopper,grace@example.com\n",
		"permissions.csv": "employee_number,object_type,object_id,permission\nE1,project,p1,admin\nE2,project,p1,read\n",
	})

	res, err := svc.ImportArchive(ctx, "export.zip", archive)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Employees)
	assert.Equal(t, 2, res.Permissions)

	var joined int
	require.NoError(t, store.db.QueryRow(
		`SELECT COUNT(*) FROM object_permissions p JOIN employees e ON e.id = p.employee_id`,
	).Scan(&joined))
	assert.Equal(t, 2, joined)

	// The same employees again violate employee_number uniqueness; nothing
	// from the second archive may remain and the failure is recorded.
	_, err = svc.ImportArchive(ctx, "again.zip", archive)
	require.Error(t, err)
	assert.Equal(t, "DB002", core.MapError(err).Code)
	assert.Equal(t, 2, count(t, store, "employees"))

	logs, err := svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, core.StatusFailed, logs[0].Status)
	assert.Equal(t, "again.zip", logs[0].FileName)
	assert.Equal(t, core.StatusCommitted, logs[1].Status)
	assert.Equal(t, 2, logs[1].PermissionRows)
}
