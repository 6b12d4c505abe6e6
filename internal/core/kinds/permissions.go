package kinds

import (
	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

// Permissions are the values of the permission column, lowest to highest.
var Permissions = []string{"read", "write", "delete", "admin"}

// ObjectTypes are the objects a permission row may grant access to.
var ObjectTypes = []string{
	"employee", "department", "leave", "overtime", "attendance",
	"project", "asset", "job", "holiday", "client",
}

func init() {
	registerObjectPermissions()
}

// Object permissions reference employees by employee_number. The IDs only
// exist once the employees of the same archive are stored, so the kind has
// no Persist and is imported by the archive flow.
func registerObjectPermissions() {
	core.Register(core.ImportDefinition{
		Info: core.ImportInfo{
			Key:         core.KindObjectPermissions,
			Label:       "Object permissions",
			Description: "Per-object grants for the employees of the same archive.",
			ArchiveOnly: true,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "employee_number", Type: core.FieldText, Required: true, Normalizer: NormalizeEmployeeNumber},
			{Name: "object_type", Type: core.FieldEnum, Required: true, EnumValues: ObjectTypes, Normalizer: NormalizeObjectType},
			{Name: "object_id", Type: core.FieldText, Required: true},
			{Name: "permission", Type: core.FieldEnum, Required: true, EnumValues: Permissions},
		},
		Build: buildObjectPermission,
	})
}

func buildObjectPermission(rec tabular.Record) (any, error) {
	return core.ObjectPermission{
		EmployeeNumber: core.Cell(rec, "employee_number"),
		ObjectType:     core.Cell(rec, "object_type"),
		ObjectID:       core.Cell(rec, "object_id"),
		Permission:     core.Cell(rec, "permission"),
	}, nil
}
