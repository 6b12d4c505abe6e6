package core

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable is returned by operations that need persistence when
// the service was built without a store.
var ErrStoreUnavailable = errors.New("no database configured")

// Store is the persistence collaborator of the import service.
// Implementations live in internal/store.
type Store interface {
	// Begin starts a transaction. Every row of one import is written in a
	// single transaction.
	Begin(ctx context.Context) (StoreTx, error)

	// ListImports returns the most recent import log entries, newest first.
	ListImports(ctx context.Context, limit int) ([]ImportLog, error)

	// PruneImports deletes import log entries started before the cutoff and
	// returns how many were removed. Imported rows are kept.
	PruneImports(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// StoreTx is one open import transaction.
// Rollback after Commit is a no-op so callers can always defer it.
type StoreTx interface {
	// InsertEmployees stores emps and returns them with ID filled in.
	InsertEmployees(ctx context.Context, emps []Employee) ([]Employee, error)
	InsertDepartments(ctx context.Context, depts []Department) error
	InsertPermissions(ctx context.Context, perms []ObjectPermission) error
	InsertImportLog(ctx context.Context, entry ImportLog) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// dryRunTx satisfies StoreTx without touching a database. Check operations
// run the full import path through it so generated IDs and the employee
// lookup behave exactly as they would in a real import.
type dryRunTx struct{}

func (dryRunTx) InsertEmployees(_ context.Context, emps []Employee) ([]Employee, error) {
	out := make([]Employee, len(emps))
	for i, e := range emps {
		e.ID = NewPgUUID()
		out[i] = e
	}
	return out, nil
}

func (dryRunTx) InsertDepartments(context.Context, []Department) error { return nil }
func (dryRunTx) InsertPermissions(context.Context, []ObjectPermission) error { return nil }
func (dryRunTx) InsertImportLog(context.Context, ImportLog) error { return nil }
func (dryRunTx) Commit(context.Context) error { return nil }
func (dryRunTx) Rollback(context.Context) error { return nil }
