package kinds

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

func init() {
	registerDepartments()
}

// Departments are checked by column count only, so a file with a fourth
// column is rejected before any row is read.
func registerDepartments() {
	core.Register(core.ImportDefinition{
		Info: core.ImportInfo{
			Key:         core.KindDepartments,
			Label:       "Departments",
			Description: "Department hierarchy: code, name, parent_code.",
		},
		Schema: tabular.CountSchema(3),
		FieldSpecs: []core.FieldSpec{
			{Name: "code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "parent_code", Type: core.FieldText, Normalizer: NormalizeCode},
		},
		Build: buildDepartment,
		Persist: func(ctx context.Context, tx core.StoreTx, importID pgtype.UUID, items []any) error {
			depts, err := core.DepartmentsFromItems(items, importID)
			if err != nil {
				return err
			}
			return tx.InsertDepartments(ctx, depts)
		},
	})
}

func buildDepartment(rec tabular.Record) (any, error) {
	code := core.Cell(rec, "code")
	parent := core.Cell(rec, "parent_code")
	if parent != "" && parent == code {
		return nil, &core.RowError{Field: "parent_code", Value: parent, Message: "department cannot be its own parent"}
	}

	return core.Department{
		Code:       code,
		Name:       core.ToPgText(core.Cell(rec, "name")),
		ParentCode: core.ToPgText(parent),
	}, nil
}
