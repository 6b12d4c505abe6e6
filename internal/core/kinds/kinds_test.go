package kinds

import (
	"testing"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"email", NormalizeEmail, "  Ada@Example.COM ", "ada@example.com"},
		{"code spaces", NormalizeCode, " hr  ops ", "HR-OPS"},
		{"code already canonical", NormalizeCode, "HR-OPS", "HR-OPS"},
		{"employee number", NormalizeEmployeeNumber, " e 0042 ", "E0042"},
		{"object type plural", NormalizeObjectType, "Projects", "project"},
		{"object type spaced", NormalizeObjectType, " Leave ", "leave"},
		{"object type unknown passes through", NormalizeObjectType, "Space Ship", "space_ship"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegisteredKinds(t *testing.T) {
	for _, key := range []string{core.KindEmployees, core.KindDepartments, core.KindObjectPermissions} {
		def, ok := core.Get(key)
		if !ok {
			t.Fatalf("%s not registered", key)
		}
		if def.Build == nil {
			t.Errorf("%s has no builder", key)
		}
		if def.Info.ArchiveOnly != (def.Persist == nil) {
			t.Errorf("%s: ArchiveOnly=%v but Persist set=%v", key, def.Info.ArchiveOnly, def.Persist != nil)
		}
	}
}

func TestEmployeeSchemaAcceptsPartialHeader(t *testing.T) {
	def, _ := core.Get(core.KindEmployees)

	records, err := tabular.ParseTable([]byte("email,employee_number,last_name,first_name\nada@example.com,E1,Lovelace,Ada\n"), def.Schema, tabular.Options{})
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	items, err := core.BuildAll(def, records)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}

	e := items[0].(core.Employee)
	if e.EmployeeNumber != "E1" || e.LastName.String != "Lovelace" {
		t.Errorf("employee = %+v", e)
	}
	if e.HireDate.Valid || e.Department.Valid {
		t.Error("absent optional columns should be NULL")
	}
	if !e.Active.Bool {
		t.Error("employees default to active")
	}
}

func TestEmployeeInactive(t *testing.T) {
	def, _ := core.Get(core.KindEmployees)
	items, err := core.BuildAll(def, []tabular.Record{{
		"employee_number": "E1", "first_name": "A", "last_name": "B",
		"email": "a@example.com", "active": "Inactive",
	}})
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if e := items[0].(core.Employee); !e.Active.Valid || e.Active.Bool {
		t.Errorf("active = %+v, want false", e.Active)
	}
}

func TestDepartmentSelfParent(t *testing.T) {
	def, _ := core.Get(core.KindDepartments)
	_, err := core.BuildAll(def, []tabular.Record{
		{"code": "IT", "name": "IT", "parent_code": nil},
		{"code": "hr", "name": "People", "parent_code": "HR"},
	})
	re, ok := core.AsRowError(err)
	if !ok || re.Row != 2 || re.Field != "parent_code" {
		t.Errorf("error = %v, want row 2 parent_code", err)
	}
}

func TestObjectPermissionBuild(t *testing.T) {
	def, _ := core.Get(core.KindObjectPermissions)
	items, err := core.BuildAll(def, []tabular.Record{{
		"employee_number": "e1", "object_type": "Assets", "object_id": "A-7", "permission": "Delete",
	}})
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	p := items[0].(core.ObjectPermission)
	if p.EmployeeNumber != "E1" || p.ObjectType != "asset" || p.Permission != "delete" || p.ObjectID != "A-7" {
		t.Errorf("permission = %+v", p)
	}

	_, err = core.BuildAll(def, []tabular.Record{{
		"employee_number": "E1", "object_type": "spaceship", "object_id": "X", "permission": "read",
	}})
	if re, ok := core.AsRowError(err); !ok || re.Field != "object_type" {
		t.Errorf("error = %v, want object_type row error", err)
	}
}
