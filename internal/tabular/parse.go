package tabular

// ParseTable parses a comma-separated buffer into records.
//
// The header row is validated against schema once, then every body row is
// mapped. Any failure is returned as a *ParseError and no records are
// returned with it. A header-only buffer yields an empty, non-nil slice.
func ParseTable(data []byte, schema Schema, opts Options) ([]Record, error) {
	records, perr := parseTable(data, schema, opts)
	if perr != nil {
		return nil, perr
	}
	return records, nil
}

func parseTable(data []byte, schema Schema, opts Options) ([]Record, *ParseError) {
	header, rows, perr := tokenizeTable(data)
	if perr != nil {
		return nil, perr
	}

	if perr := schema.validate(header); perr != nil {
		return nil, perr
	}

	return mapRecords(header, rows, opts)
}
