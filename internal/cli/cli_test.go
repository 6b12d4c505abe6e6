package cli

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	_ "github.com/king-kite/nexthrms-v2-sub002/internal/core/kinds"
)

const employeesCSV = "employee_number,first_name,last_name,email\nE1,Ada,Lovelace,ada@example.com\nE2,Grace,Hopper,grace@example.com\n"

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeArchive(t *testing.T, members map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return writeFile(t, "hr.zip", buf.Bytes())
}

func TestKinds(t *testing.T) {
	out, err := run(t, "kinds")
	require.NoError(t, err)
	assert.Contains(t, out, "employees")
	assert.Contains(t, out, "object_permissions")
	assert.Contains(t, out, "(archive only)")
}

func TestKindsJSON(t *testing.T) {
	out, err := run(t, "kinds", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   []core.ImportInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, 3)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, "kinds", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidEncoding(t *testing.T) {
	_, err := run(t, "kinds", "--encoding", "ebcdic")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUnknownFlag(t *testing.T) {
	_, err := run(t, "kinds", "--nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckValidFile(t *testing.T) {
	path := writeFile(t, "staff.csv", []byte(employeesCSV))

	out, err := run(t, "check", "employees", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ employees: 2 rows checked from staff.csv")
}

func TestCheckInvalidFile(t *testing.T) {
	path := writeFile(t, "staff.csv", []byte("employee_number,first_name,last_name,email\nE1,Ada,Lovelace,not-an-email\n"))

	out, err := run(t, "check", "employees", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Invalid email address (Code: VAL005). Use a plain address such as jane@example.com")
	assert.Contains(t, out, "row 1: email")
	assert.Contains(t, err.Error(), "VAL005")

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.True(t, exitErr.Reported)
}

func TestCheckInvalidFileJSON(t *testing.T) {
	path := writeFile(t, "staff.csv", []byte("employee_number,salary\nE1,100\n"))

	out, err := run(t, "check", "employees", path, "--format", "json")
	require.Error(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "IMP003", resp.Error.Code)
	assert.Contains(t, resp.Error.Detail, "salary")
}

func TestCheckMissingFile(t *testing.T) {
	_, err := run(t, "check", "employees", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckWithEncoding(t *testing.T) {
	// "Müller" in windows-1252, with CRLF line endings.
	path := writeFile(t, "staff.csv", []byte("employee_number,first_name,last_name,email\r\nE1,Zoe,M\xfcller,zoe@example.com\r\n"))

	out, err := run(t, "check", "employees", path, "--encoding", "cp1252")
	require.NoError(t, err)
	assert.Contains(t, out, "1 row checked")
}

func TestImportNeedsDatabase(t *testing.T) {
	path := writeFile(t, "staff.csv", []byte(employeesCSV))

	_, err := run(t, "import", "employees", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--db")
}

func TestImportAndHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "hr.db")
	path := writeFile(t, "staff.csv", []byte(employeesCSV))

	out, err := run(t, "import", "employees", path, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows imported from staff.csv")
	assert.Contains(t, out, "(import ")

	// The same employee numbers again conflict and change nothing.
	_, err = run(t, "import", "employees", path, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = run(t, "history", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []core.ImportLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, core.StatusFailed, resp.Data[0].Status)
	assert.Equal(t, core.StatusCommitted, resp.Data[1].Status)
	assert.Equal(t, 2, resp.Data[1].Rows)

	out, err = run(t, "history", "--db", db, "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "committed")
}

func TestPrune(t *testing.T) {
	db := filepath.Join(t.TempDir(), "hr.db")
	path := writeFile(t, "staff.csv", []byte(employeesCSV))

	_, err := run(t, "import", "employees", path, "--db", db)
	require.NoError(t, err)

	// A fresh entry survives the default retention.
	out, err := run(t, "prune", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 0 import log entries")

	time.Sleep(10 * time.Millisecond)
	out, err = run(t, "prune", "--db", db, "--older-than", "1ms", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"pruned":1`)

	_, err = run(t, "prune", "--db", db, "--older-than", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestArchiveCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "hr.db")
	archive := writeArchive(t, map[string]string{
		"staff.csv":  employeesCSV,
		"access.csv": "employee_number,object_type,object_id,permission\nE1,project,p1,admin\nE2,project,p1,read\n",
	})
	members := []string{"--data-member", "staff.csv", "--permissions-member", "access.csv"}

	out, err := run(t, append([]string{"check-archive", archive}, members...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 employees and 2 permissions checked")

	out, err = run(t, append([]string{"import-archive", archive, "--db", db}, members...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 employees and 2 permissions imported")

	// Default member names do not match this archive.
	_, err = run(t, "check-archive", archive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMP005")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(&ExitError{Code: ExitCommandError, Message: "x"}))
}
