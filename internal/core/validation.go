package core

// validation.go provides record-level validation before conversion.
//
// Header validation belongs to the tabular engine; this file only checks
// cells. Each record is cleaned column by column: formula wrappers are
// stripped, the FieldSpec Normalizer runs, then the value is checked against its
// type. The first failure is returned as a *RowError carrying the 1-based data
// row, matching the row numbers the engine uses.

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

// RowError reports a cell that failed validation or conversion.
type RowError struct {
	Row     int    // 1-based data row, header excluded
	Field   string // Column name
	Value   string // The offending value, if any
	Message string // Human-readable error message
}

func (e *RowError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Row)
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (%q)", e.Value)
	}
	return b.String()
}

// AsRowError unwraps err to a *RowError if it is one.
func AsRowError(err error) (*RowError, bool) {
	var re *RowError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// ValidateCell validates a single non-empty value against a field specification.
// Returns nil if valid, or an error describing the problem.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		return nil
	}

	switch spec.Type {
	case FieldDate:
		if !ToPgDate(value).Valid {
			return errors.New("invalid date format (use YYYY-MM-DD or similar)")
		}
	case FieldBool:
		if !ToPgBool(value).Valid {
			return errors.New("must be yes/no, true/false, or 1/0")
		}
	case FieldEmail:
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return errors.New("invalid email address")
		}
	case FieldEnum:
		for _, ev := range spec.EnumValues {
			if strings.EqualFold(ev, value) {
				return nil
			}
		}
		return fmt.Errorf("invalid enum value, must be one of: %s", strings.Join(spec.EnumValues, ", "))
	}
	return nil
}

// PrepareRecord returns a cleaned copy of rec with every FieldSpec column
// normalized and validated. Empty values are stored as nil. Columns without
// a FieldSpec are copied through cleaned.
func PrepareRecord(rec tabular.Record, specs []FieldSpec) (tabular.Record, *RowError) {
	out := make(tabular.Record, len(rec))
	for k := range rec {
		if v := Cell(rec, k); v != "" {
			out[k] = v
		} else {
			out[k] = nil
		}
	}

	for _, spec := range specs {
		raw := Cell(rec, spec.Name)
		if raw != "" && spec.Normalizer != nil {
			raw = spec.Normalizer(raw)
		}

		if raw == "" {
			if spec.Required {
				return nil, &RowError{Field: spec.Name, Message: "required field is empty"}
			}
			out[spec.Name] = nil
			continue
		}

		if err := ValidateCell(raw, spec); err != nil {
			return nil, &RowError{Field: spec.Name, Value: raw, Message: err.Error()}
		}
		if spec.Type == FieldEnum {
			raw = strings.ToLower(raw)
		}
		out[spec.Name] = raw
	}
	return out, nil
}

// BuildAll prepares and builds every record of one import. It stops at the
// first bad row.
func BuildAll(def ImportDefinition, records []tabular.Record) ([]any, error) {
	if def.Build == nil {
		return nil, fmt.Errorf("import kind %s has no builder", def.Info.Key)
	}

	items := make([]any, 0, len(records))
	for i, rec := range records {
		clean, rerr := PrepareRecord(rec, def.FieldSpecs)
		if rerr != nil {
			rerr.Row = i + 1
			return nil, rerr
		}

		item, err := def.Build(clean)
		if err != nil {
			if re, ok := AsRowError(err); ok {
				re.Row = i + 1
				return nil, re
			}
			return nil, &RowError{Row: i + 1, Message: err.Error()}
		}
		items = append(items, item)
	}
	return items, nil
}
