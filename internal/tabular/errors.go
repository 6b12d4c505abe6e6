package tabular

// errors.go defines the closed set of parse failures.
//
// Every failure is reported as a *ParseError carrying a Kind that callers can
// check with errors.Is against the Err* sentinels below. Row numbers are
// 1-indexed and count data rows only, so "row 3" is the third line under the
// header when the file is opened in a spreadsheet.

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the category of a parse failure.
type Kind int

const (
	KindEmptyInput Kind = iota + 1
	KindHeaderCountMismatch
	KindUnknownHeaders
	KindRowFieldCountMismatch
	KindMissingMember
	KindHook
	KindInvalidArchive
	KindMemberTooLarge
	KindInvalidSchema
)

func (k Kind) String() string {
	switch k {
	case KindEmptyInput:
		return "empty input"
	case KindHeaderCountMismatch:
		return "header count mismatch"
	case KindUnknownHeaders:
		return "unknown headers"
	case KindRowFieldCountMismatch:
		return "row field count mismatch"
	case KindMissingMember:
		return "missing archive member"
	case KindHook:
		return "hook failed"
	case KindInvalidArchive:
		return "invalid archive"
	case KindMemberTooLarge:
		return "archive member too large"
	case KindInvalidSchema:
		return "invalid schema"
	default:
		return "unknown"
	}
}

// Phase names the archive phase a failure occurred in.
// Single-table parses leave it empty.
type Phase string

const (
	PhaseData        Phase = "data"
	PhasePermissions Phase = "permissions"
)

// Sentinels for errors.Is. A *ParseError matches the sentinel of its Kind.
var (
	ErrEmptyInput            = errors.New("empty input")
	ErrHeaderCountMismatch   = errors.New("header count mismatch")
	ErrUnknownHeaders        = errors.New("unknown headers")
	ErrRowFieldCountMismatch = errors.New("row field count mismatch")
	ErrMissingMember         = errors.New("missing archive member")
	ErrHook                  = errors.New("hook failed")
	ErrInvalidArchive        = errors.New("invalid archive")
	ErrMemberTooLarge        = errors.New("archive member too large")
	ErrInvalidSchema         = errors.New("invalid schema")
)

var kindSentinels = map[Kind]error{
	KindEmptyInput:            ErrEmptyInput,
	KindHeaderCountMismatch:   ErrHeaderCountMismatch,
	KindUnknownHeaders:        ErrUnknownHeaders,
	KindRowFieldCountMismatch: ErrRowFieldCountMismatch,
	KindMissingMember:         ErrMissingMember,
	KindHook:                  ErrHook,
	KindInvalidArchive:        ErrInvalidArchive,
	KindMemberTooLarge:        ErrMemberTooLarge,
	KindInvalidSchema:         ErrInvalidSchema,
}

// ParseError is the single error type returned by the engine.
// It is never mutated after creation; withPhase returns a copy.
type ParseError struct {
	Kind  Kind
	Phase Phase

	Row      int      // data row number (1-indexed), KindRowFieldCountMismatch only
	Expected int      // expected count for count mismatches
	Found    int      // actual count for count mismatches
	Names    []string // offending headers, KindUnknownHeaders only
	Member   string   // archive member name, archive kinds only

	Err error // underlying cause (hook error, zip error)
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Phase != "" {
		b.WriteString(string(e.Phase))
		b.WriteString(": ")
	}

	switch e.Kind {
	case KindEmptyInput:
		b.WriteString("empty file: no lines to parse")
	case KindHeaderCountMismatch:
		fmt.Fprintf(&b, "header has %d columns, expected %d", e.Found, e.Expected)
	case KindUnknownHeaders:
		quoted := make([]string, len(e.Names))
		for i, n := range e.Names {
			quoted[i] = fmt.Sprintf("%q", n)
		}
		fmt.Fprintf(&b, "unknown headers: %s", strings.Join(quoted, ", "))
	case KindRowFieldCountMismatch:
		fmt.Fprintf(&b, "row %d: has %d fields, expected %d", e.Row, e.Found, e.Expected)
	case KindMissingMember:
		fmt.Fprintf(&b, "archive member %q not found", e.Member)
	case KindMemberTooLarge:
		fmt.Fprintf(&b, "archive member %q exceeds %d bytes", e.Member, e.Expected)
	case KindInvalidArchive:
		if e.Member != "" {
			fmt.Fprintf(&b, "archive member %q is unreadable", e.Member)
		} else {
			b.WriteString("invalid archive")
		}
	case KindInvalidSchema:
		b.WriteString("invalid schema")
	case KindHook:
		b.WriteString("hook failed")
	default:
		b.WriteString(e.Kind.String())
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause, e.g. the error a hook returned.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's Kind.
func (e *ParseError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func (e *ParseError) withPhase(p Phase) *ParseError {
	cp := *e
	cp.Phase = p
	return &cp
}

// AsParseError unwraps err to a *ParseError if it contains one.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
