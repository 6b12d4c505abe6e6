package tabular

// Record is one data row keyed by header name. Values are strings, or
// Options.Empty for blank fields when substitution is on.
type Record map[string]any

// Text returns the field as a string. Missing fields and the empty
// sentinel report ok=false.
func (r Record) Text(name string) (string, bool) {
	s, ok := r[name].(string)
	return s, ok
}

// Options controls record mapping.
type Options struct {
	// KeepEmpty disables empty-value substitution; blank fields stay "".
	KeepEmpty bool

	// Empty replaces blank fields when substitution is on. The default nil
	// marks the value as absent, distinct from an explicit "".
	Empty any
}

// mapRecords zips header names onto each row. The first row whose arity
// differs from the header aborts the mapping and no records are returned.
func mapRecords(header []string, rows [][]string, opts Options) ([]Record, *ParseError) {
	records := make([]Record, 0, len(rows))

	for i, row := range rows {
		if len(row) != len(header) {
			return nil, &ParseError{
				Kind:     KindRowFieldCountMismatch,
				Row:      i + 1,
				Expected: len(header),
				Found:    len(row),
			}
		}

		rec := make(Record, len(header))
		for j, name := range header {
			v := row[j]
			if v == "" && !opts.KeepEmpty {
				rec[name] = opts.Empty
				continue
			}
			rec[name] = v
		}
		records = append(records, rec)
	}

	return records, nil
}
