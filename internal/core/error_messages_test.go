package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name: "nil error returns empty",
			err:  nil,
		},
		{
			name:        "empty input",
			err:         &tabular.ParseError{Kind: tabular.KindEmptyInput},
			wantCode:    "IMP001",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "unknown headers",
			err:         &tabular.ParseError{Kind: tabular.KindUnknownHeaders, Names: []string{"nick"}},
			wantCode:    "IMP003",
			wantMessage: "The file contains columns that are not recognised",
		},
		{
			name:        "row field count mismatch wrapped by caller",
			err:         fmt.Errorf("import employees: %w", &tabular.ParseError{Kind: tabular.KindRowFieldCountMismatch, Row: 4}),
			wantCode:    "IMP004",
			wantMessage: "A row has the wrong number of fields",
		},
		{
			name:        "missing member",
			err:         &tabular.ParseError{Kind: tabular.KindMissingMember, Member: "permissions.csv", Phase: tabular.PhasePermissions},
			wantCode:    "IMP005",
			wantMessage: "The archive is missing a required file",
		},
		{
			name:        "hook error maps its cause",
			err:         &tabular.ParseError{Kind: tabular.KindHook, Err: errors.New("ERROR: duplicate key value violates unique constraint")},
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
		{
			name:        "hook row error maps to validation",
			err:         &tabular.ParseError{Kind: tabular.KindHook, Err: &RowError{Row: 2, Field: "employee_number", Message: "unknown employee"}},
			wantCode:    "VAL007",
			wantMessage: "Permission row refers to an employee that is not in the import",
		},
		{
			name:        "row error required field",
			err:         &RowError{Row: 1, Field: "email", Message: "required field is empty"},
			wantCode:    "VAL003",
			wantMessage: "Required field is empty",
		},
		{
			name:        "row error invalid date beats quoted data",
			err:         &RowError{Row: 1, Field: "hire_date", Value: "duplicate key", Message: "invalid date format (use YYYY-MM-DD or similar)"},
			wantCode:    "VAL001",
			wantMessage: "Invalid date format detected",
		},
		{
			name:        "foreign key maps correctly",
			err:         errors.New("violates foreign key constraint"),
			wantCode:    "DB003",
			wantMessage: "Referenced record does not exist",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "deadline exceeded",
			err:         context.DeadlineExceeded,
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "plain timeout",
			err:         errors.New("i/o timeout"),
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "limiter busy",
			err:         ErrTooManyImports,
			wantCode:    "UPL002",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "unsupported encoding",
			err:         fmt.Errorf("%w: %q", ErrUnsupportedEncoding, "ebcdic"),
			wantCode:    "FILE003",
			wantMessage: "File contains characters in an unsupported encoding",
		},
		{
			name:        "archive only kind",
			err:         ErrArchiveOnly,
			wantCode:    "KND002",
			wantMessage: "This data can only be imported as part of an archive",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(&tabular.ParseError{Kind: tabular.KindEmptyInput})

	expected := "The uploaded file is empty (Code: IMP001). Upload a file with a header row and at least one data row"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"parse error", &tabular.ParseError{Kind: tabular.KindHeaderCountMismatch}, true},
		{"invalid schema is server side", &tabular.ParseError{Kind: tabular.KindInvalidSchema}, false},
		{"hook with row error", &tabular.ParseError{Kind: tabular.KindHook, Err: &RowError{Message: "unknown employee"}}, true},
		{"hook with db error", &tabular.ParseError{Kind: tabular.KindHook, Err: errors.New("connection reset")}, false},
		{"row error", &RowError{Message: "invalid email address"}, true},
		{"too large", fmt.Errorf("%w: 10 bytes", ErrFileTooLarge), true},
		{"unknown kind", fmt.Errorf("%w: payroll", ErrUnknownKind), true},
		{"db error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClientError(tt.err); got != tt.want {
				t.Errorf("IsClientError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", errors.New("duplicate key"), true},
		{"parse error is user facing", &tabular.ParseError{Kind: tabular.KindMemberTooLarge}, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("pq: duplicate key value")
		userErr := NewUserError(techErr)

		if userErr.Error() != "A record with this ID already exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
