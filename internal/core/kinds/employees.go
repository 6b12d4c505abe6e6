package kinds

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

func init() {
	registerEmployees()
}

func registerEmployees() {
	core.Register(core.ImportDefinition{
		Info: core.ImportInfo{
			Key:         core.KindEmployees,
			Label:       "Employees",
			Description: "Employee records keyed by employee number. Also the data file of an archive import.",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "employee_number", Type: core.FieldText, Required: true, Normalizer: NormalizeEmployeeNumber},
			{Name: "first_name", Type: core.FieldText, Required: true},
			{Name: "last_name", Type: core.FieldText, Required: true},
			{Name: "email", Type: core.FieldEmail, Required: true, Normalizer: NormalizeEmail},
			{Name: "department", Type: core.FieldText, Normalizer: NormalizeCode},
			{Name: "job_title", Type: core.FieldText},
			{Name: "hire_date", Type: core.FieldDate},
			{Name: "active", Type: core.FieldBool},
		},
		Build: buildEmployee,
		Persist: func(ctx context.Context, tx core.StoreTx, importID pgtype.UUID, items []any) error {
			emps, err := core.EmployeesFromItems(items, importID)
			if err != nil {
				return err
			}
			_, err = tx.InsertEmployees(ctx, emps)
			return err
		},
	})
}

func buildEmployee(rec tabular.Record) (any, error) {
	active := core.ToPgBool(core.Cell(rec, "active"))
	if !active.Valid {
		// A missing active column means the employee is active.
		active = pgtype.Bool{Bool: true, Valid: true}
	}
	return core.Employee{
		EmployeeNumber: core.Cell(rec, "employee_number"),
		FirstName:      core.ToPgText(core.Cell(rec, "first_name")),
		LastName:       core.ToPgText(core.Cell(rec, "last_name")),
		Email:          core.ToPgText(core.Cell(rec, "email")),
		Department:     core.ToPgText(core.Cell(rec, "department")),
		JobTitle:       core.ToPgText(core.Cell(rec, "job_title")),
		HireDate:       core.ToPgDate(core.Cell(rec, "hire_date")),
		Active:         active,
	}, nil
}
