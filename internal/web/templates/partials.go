// Package templates renders the HTML fragments returned to HTMX requests.
// Components are plain templ.ComponentFuncs; every interpolated string goes
// through templ.EscapeString.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
)

// ErrorAlert renders a dismissible error box with the user message, the
// suggested action and the error code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p class="alert-message">%s</p>`, templ.EscapeString(message))
		if action != "" {
			fmt.Fprintf(&b, `<p class="alert-action">%s</p>`, templ.EscapeString(action))
		}
		if code != "" {
			fmt.Fprintf(&b, `<span class="alert-code">%s</span>`, templ.EscapeString(code))
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ImportResult summarizes a finished single-table import.
func ImportResult(res *core.ImportResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-success" role="status">`)
		fmt.Fprintf(&b, `<p>%s: %d %s %s from %s</p>`,
			templ.EscapeString(res.Kind), res.Rows, plural(res.Rows, "row", "rows"),
			verb(res.DryRun), templ.EscapeString(res.FileName))
		if res.ImportID != "" {
			fmt.Fprintf(&b, `<span class="import-id">%s</span>`, templ.EscapeString(res.ImportID))
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ArchiveResult summarizes a finished archive import.
func ArchiveResult(res *core.ArchiveImportResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-success" role="status">`)
		fmt.Fprintf(&b, `<p>%s: %d %s and %d %s %s</p>`,
			templ.EscapeString(res.FileName),
			res.Employees, plural(res.Employees, "employee", "employees"),
			res.Permissions, plural(res.Permissions, "permission", "permissions"),
			verb(res.DryRun))
		if res.ImportID != "" {
			fmt.Fprintf(&b, `<span class="import-id">%s</span>`, templ.EscapeString(res.ImportID))
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// History renders the import log as table rows, newest first.
func History(logs []core.ImportLog) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table class="history"><thead><tr>`)
		b.WriteString(`<th>Started</th><th>Kind</th><th>File</th><th>Status</th><th>Rows</th><th>Error</th>`)
		b.WriteString(`</tr></thead><tbody>`)
		if len(logs) == 0 {
			b.WriteString(`<tr><td colspan="6">No imports yet</td></tr>`)
		}
		for _, l := range logs {
			rows := fmt.Sprint(l.Rows)
			if l.PermissionRows > 0 {
				rows = fmt.Sprintf("%d + %d", l.Rows, l.PermissionRows)
			}
			fmt.Fprintf(&b, `<tr class="status-%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(string(l.Status)),
				l.StartedAt.Format("2006-01-02 15:04:05"),
				templ.EscapeString(l.Kind),
				templ.EscapeString(l.FileName),
				templ.EscapeString(string(l.Status)),
				rows,
				templ.EscapeString(l.Error))
		}
		b.WriteString(`</tbody></table>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func verb(dryRun bool) string {
	if dryRun {
		return "checked"
	}
	return "imported"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
