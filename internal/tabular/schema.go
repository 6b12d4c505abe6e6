package tabular

import (
	"strconv"
	"strings"
)

type schemaMode int

const (
	modeUnset schemaMode = iota
	modeCount
	modeNames
)

// Schema declares what a valid header row looks like. It is either a column
// count or a set of allowed header names; the two modes are never combined.
// The zero value is invalid and fails every validation.
type Schema struct {
	mode  schemaMode
	count int
	names []string
	set   map[string]struct{}
}

// CountSchema requires the header to have exactly n columns.
func CountSchema(n int) Schema {
	return Schema{mode: modeCount, count: n}
}

// NameSchema requires every header to be one of names. Column order in the
// file is free; the header row defines it for the rest of the parse.
func NameSchema(names ...string) Schema {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return Schema{
		mode:  modeNames,
		names: append([]string(nil), names...),
		set:   set,
	}
}

// IsZero reports whether s was never constructed.
func (s Schema) IsZero() bool { return s.mode == modeUnset }

// IsCount reports whether s validates by column count.
func (s Schema) IsCount() bool { return s.mode == modeCount }

// Count returns the expected column count of a count schema.
func (s Schema) Count() int { return s.count }

// Names returns a copy of the allowed names of a name schema, in declaration order.
func (s Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// String describes the schema for logs and CLI output.
func (s Schema) String() string {
	switch s.mode {
	case modeCount:
		return "count(" + strconv.Itoa(s.count) + ")"
	case modeNames:
		return "names(" + strings.Join(s.names, ",") + ")"
	default:
		return "unset"
	}
}

// Validate checks header against the schema. Name mode reports every
// unknown header at once, in file order.
func (s Schema) Validate(header []string) error {
	if perr := s.validate(header); perr != nil {
		return perr
	}
	return nil
}

func (s Schema) validate(header []string) *ParseError {
	switch s.mode {
	case modeCount:
		if len(header) != s.count {
			return &ParseError{Kind: KindHeaderCountMismatch, Expected: s.count, Found: len(header)}
		}
		return nil

	case modeNames:
		var unknown []string
		for _, h := range header {
			if _, ok := s.set[h]; !ok {
				unknown = append(unknown, h)
			}
		}
		if len(unknown) > 0 {
			return &ParseError{Kind: KindUnknownHeaders, Names: unknown}
		}
		return nil

	default:
		return &ParseError{Kind: KindInvalidSchema}
	}
}
