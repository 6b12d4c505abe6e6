package core

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// EmployeesFromItems converts built items to employees stamped with
// importID. An employee_number repeated within the file is a row error.
func EmployeesFromItems(items []any, importID pgtype.UUID) ([]Employee, error) {
	seen := make(map[string]int, len(items))
	emps := make([]Employee, len(items))
	for i, item := range items {
		e, ok := item.(Employee)
		if !ok {
			return nil, fmt.Errorf("row %d: expected Employee, got %T", i+1, item)
		}
		if first, dup := seen[e.EmployeeNumber]; dup {
			return nil, &RowError{
				Row:     i + 1,
				Field:   "employee_number",
				Value:   e.EmployeeNumber,
				Message: fmt.Sprintf("duplicate value in file (first seen on row %d)", first),
			}
		}
		seen[e.EmployeeNumber] = i + 1
		e.ImportID = importID
		emps[i] = e
	}
	return emps, nil
}

// DepartmentsFromItems converts built items to departments stamped with
// importID. A code repeated within the file is a row error.
func DepartmentsFromItems(items []any, importID pgtype.UUID) ([]Department, error) {
	seen := make(map[string]int, len(items))
	depts := make([]Department, len(items))
	for i, item := range items {
		d, ok := item.(Department)
		if !ok {
			return nil, fmt.Errorf("row %d: expected Department, got %T", i+1, item)
		}
		if first, dup := seen[d.Code]; dup {
			return nil, &RowError{
				Row:     i + 1,
				Field:   "code",
				Value:   d.Code,
				Message: fmt.Sprintf("duplicate value in file (first seen on row %d)", first),
			}
		}
		seen[d.Code] = i + 1
		d.ImportID = importID
		depts[i] = d
	}
	return depts, nil
}

// ResolvePermissions converts built items to permissions and fills in
// EmployeeID from ids, which maps employee_number to the stored employee ID.
// A grant repeated within the file for the same employee and object is a row
// error, whatever its permission.
func ResolvePermissions(items []any, ids map[string]pgtype.UUID, importID pgtype.UUID) ([]ObjectPermission, error) {
	type grantKey struct{ employee, objectType, objectID string }
	seen := make(map[grantKey]int, len(items))
	perms := make([]ObjectPermission, len(items))
	for i, item := range items {
		p, ok := item.(ObjectPermission)
		if !ok {
			return nil, fmt.Errorf("row %d: expected ObjectPermission, got %T", i+1, item)
		}
		id, found := ids[p.EmployeeNumber]
		if !found {
			return nil, &RowError{
				Row:     i + 1,
				Field:   "employee_number",
				Value:   p.EmployeeNumber,
				Message: "unknown employee",
			}
		}
		key := grantKey{p.EmployeeNumber, p.ObjectType, p.ObjectID}
		if first, dup := seen[key]; dup {
			return nil, &RowError{
				Row:     i + 1,
				Field:   "object_id",
				Value:   p.ObjectID,
				Message: fmt.Sprintf("duplicate value in file (first seen on row %d)", first),
			}
		}
		seen[key] = i + 1
		p.EmployeeID = id
		p.ImportID = importID
		perms[i] = p
	}
	return perms, nil
}
