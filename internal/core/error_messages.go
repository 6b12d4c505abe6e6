package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference.
//
// # Import Errors (IMP001-IMP099)
//
// Structural failures reported by the tabular engine, matched by kind:
//
//	IMP001 - Empty file: nothing to parse
//	IMP002 - Header column count does not match the import kind
//	IMP003 - Header contains unrecognised column names
//	IMP004 - A row has a different number of fields than the header
//	IMP005 - Archive is missing the data or permissions file
//	IMP006 - Archive (or one of its files) cannot be read
//	IMP007 - A file inside the archive exceeds the size cap
//	IMP008 - Import kind is misconfigured (server side)
//
// Hook failures are not a code of their own: the error the hook returned is
// mapped instead, so a duplicate key while storing employees still reads as
// DB001.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key          DB004 - Connection refused
//	DB002 - Unique constraint      DB005 - Connection reset
//	DB003 - Foreign key            DB006 - Timeout
//	                               DB007 - Deadlock
//	DB008 - No database configured
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date           VAL005 - Invalid email address
//	VAL002 - Invalid yes/no value   VAL006 - Value not in allowed list
//	VAL003 - Required field empty   VAL007 - Permission row names an unknown employee
//	VAL004 - Key repeated in file   VAL008 - Department is its own parent
//
// # File, Upload, Kind and Rate Errors
//
//	FILE001 - File too large         UPL001 - Upload form unreadable
//	FILE003 - Encoding error         UPL002 - Too many imports in progress
//	FILE004 - No file provided       UPL004 - Request cancelled
//	                                 UPL005 - Request timed out
//	KND001  - Unknown import kind    KND002 - Kind only valid inside an archive
//	RATE001 - Rate limited
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the
// original error.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var parseErrorMessages = map[tabular.Kind]UserMessage{
	tabular.KindEmptyInput: {
		Message: "The uploaded file is empty",
		Action:  "Upload a file with a header row and at least one data row",
		Code:    "IMP001",
	},
	tabular.KindHeaderCountMismatch: {
		Message: "The header row has the wrong number of columns",
		Action:  "Download the template for this import and compare the header",
		Code:    "IMP002",
	},
	tabular.KindUnknownHeaders: {
		Message: "The file contains columns that are not recognised",
		Action:  "Rename or remove the listed columns",
		Code:    "IMP003",
	},
	tabular.KindRowFieldCountMismatch: {
		Message: "A row has the wrong number of fields",
		Action:  "Check the reported row for missing or extra commas",
		Code:    "IMP004",
	},
	tabular.KindMissingMember: {
		Message: "The archive is missing a required file",
		Action:  "Include both the employees file and the permissions file",
		Code:    "IMP005",
	},
	tabular.KindInvalidArchive: {
		Message: "The archive could not be read",
		Action:  "Re-create the zip archive and try again",
		Code:    "IMP006",
	},
	tabular.KindMemberTooLarge: {
		Message: "A file inside the archive is too large",
		Action:  "Split the import into smaller archives",
		Code:    "IMP007",
	},
	tabular.KindInvalidSchema: {
		Message: "This import is not configured correctly",
		Action:  "Contact support",
		Code:    "IMP008",
	},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Validation (VAL). These come first because row errors quote user data
	// that may contain any of the later patterns.
	{"unknown employee", UserMessage{"Permission row refers to an employee that is not in the import", "Check employee_number against the employees file", "VAL007"}},
	{"invalid date", UserMessage{"Invalid date format detected", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", "VAL001"}},
	{"must be yes/no", UserMessage{"Invalid yes/no value", "Use yes/no, true/false, or 1/0", "VAL002"}},
	{"required field", UserMessage{"Required field is empty", "Ensure all required columns have values", "VAL003"}},
	{"duplicate value in file", UserMessage{"The same key appears more than once in the file", "Remove the repeated rows", "VAL004"}},
	{"invalid email", UserMessage{"Invalid email address", "Use a plain address such as jane@example.com", "VAL005"}},
	{"invalid enum", UserMessage{"Value is not in the allowed list", "Check the allowed values for this field", "VAL006"}},
	{"its own parent", UserMessage{"A department cannot be its own parent", "Clear parent_code or point it at another department", "VAL008"}},

	// Database (DB)
	{"duplicate key", UserMessage{"A record with this ID already exists", "Remove duplicates or records that were already imported", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check for duplicate entries in your file", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Review your data for duplicate key values", "DB002"}},
	{"foreign key constraint", UserMessage{"Referenced record does not exist", "Ensure parent records are imported first", "DB003"}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Ensure parent records are imported first", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"no database configured", UserMessage{"Imports cannot be stored right now", "Use a dry run, or configure a database", "DB008"}},

	// File (FILE)
	{"file too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"encoding error", UserMessage{"File contains characters in an unsupported encoding", "Save the file as UTF-8 or choose its encoding", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to upload", "FILE004"}},

	// Upload (UPL)
	{"invalid upload form", UserMessage{"The upload could not be read", "Send the file in the multipart form field \"file\"", "UPL001"}},
	{"too many imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "UPL002"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or try again later", "UPL005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},

	// Import kinds (KND)
	{"unknown import kind", UserMessage{"Unknown import type", "Choose one of the listed import kinds", "KND001"}},
	{"only be imported inside an archive", UserMessage{"This data can only be imported as part of an archive", "Upload a zip with the employees and permissions files", "KND002"}},

	// Rate limiting (RATE)
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Engine errors are matched by kind; hook errors are unwrapped and the
// underlying cause is mapped. Everything else goes through the pattern table.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if pe, ok := tabular.AsParseError(err); ok {
		if pe.Kind == tabular.KindHook && pe.Err != nil {
			return MapError(pe.Err)
		}
		if msg, ok := parseErrorMessages[pe.Kind]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// IsClientError reports whether err was caused by the uploaded content or
// the request rather than by the server. Transports use it to choose 4xx
// over 5xx.
func IsClientError(err error) bool {
	if err == nil {
		return false
	}
	if pe, ok := tabular.AsParseError(err); ok {
		if pe.Kind == tabular.KindHook {
			return IsClientError(pe.Err)
		}
		return pe.Kind != tabular.KindInvalidSchema
	}
	if _, ok := AsRowError(err); ok {
		return true
	}
	return errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrUnsupportedEncoding) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrArchiveOnly)
}

// UserError pairs a technical error with its user-facing message.
// Error() returns the user message; Unwrap exposes the original for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
