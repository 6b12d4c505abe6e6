package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

// Registered import kinds.
const (
	KindEmployees         = "employees"
	KindDepartments       = "departments"
	KindObjectPermissions = "object_permissions"
)

// FieldType represents the expected data type for a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldBool
	FieldEmail
)

// FieldSpec defines validation rules for a single column.
type FieldSpec struct {
	Name       string              // Column header name (must match the file exactly)
	Type       FieldType           // Expected data type
	Required   bool                // Value must be present on every row
	EnumValues []string            // Valid values for FieldEnum type
	Normalizer func(string) string // Optional transformation applied before validation
}

// ImportInfo contains display information about an import kind.
type ImportInfo struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Columns     []string `json:"columns"`
	Schema      string   `json:"schema"`

	// ArchiveOnly kinds can only be imported as the permissions member of
	// an archive because their rows reference generated employee IDs.
	ArchiveOnly bool `json:"archiveOnly,omitempty"`
}

// BuildFunc converts one validated record into a domain value.
type BuildFunc func(rec tabular.Record) (any, error)

// PersistFunc writes the built values of one import inside tx.
type PersistFunc func(ctx context.Context, tx StoreTx, importID pgtype.UUID, items []any) error

// ImportDefinition contains everything needed to process an import kind.
type ImportDefinition struct {
	Info ImportInfo

	// Schema validates the header row. When zero it is derived from
	// FieldSpecs as a name schema.
	Schema     tabular.Schema
	FieldSpecs []FieldSpec

	Build   BuildFunc
	Persist PersistFunc // nil for archive-only kinds
}

// Employee is one row of the employees import.
type Employee struct {
	ID             pgtype.UUID
	EmployeeNumber string
	FirstName      pgtype.Text
	LastName       pgtype.Text
	Email          pgtype.Text
	Department     pgtype.Text
	JobTitle       pgtype.Text
	HireDate       pgtype.Date
	Active         pgtype.Bool
	ImportID       pgtype.UUID
}

// Department is one row of the departments import.
type Department struct {
	Code       string
	Name       pgtype.Text
	ParentCode pgtype.Text
	ImportID   pgtype.UUID
}

// ObjectPermission grants an employee access to one object.
// EmployeeID is resolved from EmployeeNumber after the employees are stored.
type ObjectPermission struct {
	EmployeeID     pgtype.UUID
	EmployeeNumber string
	ObjectType     string
	ObjectID       string
	Permission     string
	ImportID       pgtype.UUID
}

// ImportStatus is the outcome recorded in the import log.
type ImportStatus string

const (
	StatusCommitted ImportStatus = "committed"
	StatusFailed    ImportStatus = "failed"
)

// ImportLog is one entry of the import history.
type ImportLog struct {
	ID             uuid.UUID    `json:"id"`
	Kind           string       `json:"kind"`
	FileName       string       `json:"fileName"`
	Status         ImportStatus `json:"status"`
	Rows           int          `json:"rows"`
	PermissionRows int          `json:"permissionRows,omitempty"`
	Error          string       `json:"error,omitempty"`
	StartedAt      time.Time    `json:"startedAt"`
	DurationMillis int64        `json:"durationMs"`
}

// ImportResult contains the outcome of a single-table import.
type ImportResult struct {
	ImportID string        `json:"importId,omitempty"`
	Kind     string        `json:"kind"`
	FileName string        `json:"fileName"`
	Rows     int           `json:"rows"`
	DryRun   bool          `json:"dryRun"`
	Duration time.Duration `json:"-"`
}

// ArchiveImportResult contains the outcome of an archive import.
type ArchiveImportResult struct {
	ImportID    string        `json:"importId,omitempty"`
	FileName    string        `json:"fileName"`
	Employees   int           `json:"employees"`
	Permissions int           `json:"permissions"`
	DryRun      bool          `json:"dryRun"`
	Duration    time.Duration `json:"-"`
}
