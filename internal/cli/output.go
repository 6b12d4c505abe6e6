package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The file was rejected (validation, structure, conflicts)
	ExitCommandError = 2 // Command error (bad flags, unreadable file, database unreachable)
)

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code    int // ExitFailure or ExitCommandError
	Message string
	Err     error

	// Reported is set once the error has been written to the command output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope of every command.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError is the error part of a Response.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Success writes data. In text mode text is printed instead.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Fail reports err and returns the ExitError the command should return.
// Rejected files exit with ExitFailure, everything else with
// ExitCommandError.
func (f *OutputFormatter) Fail(err error) error {
	msg := core.MapError(err)
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error: &ResponseError{
				Code:    msg.Code,
				Message: msg.Message,
				Action:  msg.Action,
				Detail:  err.Error(),
			},
		})
	} else {
		fmt.Fprintf(f.Writer, "✗ %s\n  %s\n", core.FormatUserError(err), err)
	}

	code := ExitCommandError
	if core.IsClientError(err) || msg.Code == "DB001" || msg.Code == "DB002" {
		code = ExitFailure
	}
	return &ExitError{Code: code, Message: msg.Code, Err: err, Reported: true}
}
