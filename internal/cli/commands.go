package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/store/postgres"
	"github.com/king-kite/nexthrms-v2-sub002/internal/store/sqlite"
)

// NewKindsCommand lists the registered import kinds and their columns.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List import kinds and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := core.NewService(nil, rootOpts.serviceOptions()).ListKinds()

			var b strings.Builder
			tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tLABEL\tCOLUMNS")
			for _, k := range kinds {
				label := k.Label
				if k.ArchiveOnly {
					label += " (archive only)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Key, label, strings.Join(k.Columns, ","))
			}
			tw.Flush()

			return rootOpts.formatter(cmd).Success(kinds, strings.TrimRight(b.String(), "\n"))
		},
	}
}

// NewCheckCommand validates a single file without storing it.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <kind> <file>",
		Short: "Validate a file without importing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTable(cmd, rootOpts, args[0], args[1], true)
		},
	}
}

// NewImportCommand imports a single file.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <kind> <file>",
		Short: "Import a file in one transaction",
		Long: `Import a departments or employees file. Every row is stored, or
none is: the first invalid row aborts the import.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTable(cmd, rootOpts, args[0], args[1], false)
		},
	}
}

// NewCheckArchiveCommand validates an archive without storing it.
func NewCheckArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-archive <file.zip>",
		Short: "Validate an employees and permissions archive without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(cmd, rootOpts, args[0], true)
		},
	}
}

// NewImportArchiveCommand imports an employees and permissions archive.
func NewImportArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-archive <file.zip>",
		Short: "Import an employees and permissions archive in one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(cmd, rootOpts, args[0], false)
		},
	}
}

// NewHistoryCommand prints the most recent imports.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent imports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			svc, closeStore, err := openService(cmd.Context(), rootOpts, true)
			if err != nil {
				return err
			}
			defer closeStore()

			logs, err := svc.History(cmd.Context(), limit)
			if err != nil {
				return out.Fail(err)
			}

			var b strings.Builder
			tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tKIND\tFILE\tSTATUS\tROWS\tERROR")
			for _, l := range logs {
				rows := fmt.Sprint(l.Rows)
				if l.PermissionRows > 0 {
					rows = fmt.Sprintf("%d+%d", l.Rows, l.PermissionRows)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					l.StartedAt.Local().Format("2006-01-02 15:04:05"), l.Kind, l.FileName, l.Status, rows, l.Error)
			}
			tw.Flush()

			if logs == nil {
				logs = []core.ImportLog{}
			}
			return out.Success(logs, strings.TrimRight(b.String(), "\n"))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", core.DefaultHistoryLimit, "number of imports to show")
	return cmd
}

// NewPruneCommand deletes old import log entries.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete import history older than a given age",
		Long: `Delete import log entries older than --older-than. The employees,
departments and permissions those imports stored are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if olderThan <= 0 {
				return &ExitError{Code: ExitCommandError, Message: "--older-than must be positive"}
			}
			svc, closeStore, err := openService(cmd.Context(), rootOpts, true)
			if err != nil {
				return err
			}
			defer closeStore()

			n, err := svc.PruneHistory(cliContext(cmd), olderThan)
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(map[string]int64{"pruned": n},
				fmt.Sprintf("✓ pruned %d import log %s older than %s", n, plural(int(n), "entry", "entries"), olderThan))
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", core.DefaultHistoryRetention, "age of the entries to delete")
	return cmd
}

func runTable(cmd *cobra.Command, rootOpts *RootOptions, kind, path string, dryRun bool) error {
	out := rootOpts.formatter(cmd)
	data, err := readInput(path)
	if err != nil {
		return err
	}

	svc, closeStore, err := openService(cmd.Context(), rootOpts, !dryRun)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cliContext(cmd)
	var res *core.ImportResult
	if dryRun {
		res, err = svc.CheckTable(ctx, kind, filepath.Base(path), data)
	} else {
		res, err = svc.ImportTable(ctx, kind, filepath.Base(path), data)
	}
	if err != nil {
		return out.Fail(err)
	}

	text := fmt.Sprintf("✓ %s: %d %s %s from %s", res.Kind, res.Rows, plural(res.Rows, "row", "rows"), verb(dryRun), res.FileName)
	if res.ImportID != "" {
		text += " (import " + res.ImportID + ")"
	}
	return out.Success(res, text)
}

func runArchive(cmd *cobra.Command, rootOpts *RootOptions, path string, dryRun bool) error {
	out := rootOpts.formatter(cmd)
	data, err := readInput(path)
	if err != nil {
		return err
	}

	svc, closeStore, err := openService(cmd.Context(), rootOpts, !dryRun)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cliContext(cmd)
	var res *core.ArchiveImportResult
	if dryRun {
		res, err = svc.CheckArchive(ctx, filepath.Base(path), data)
	} else {
		res, err = svc.ImportArchive(ctx, filepath.Base(path), data)
	}
	if err != nil {
		return out.Fail(err)
	}

	text := fmt.Sprintf("✓ %s: %d %s and %d %s %s", res.FileName,
		res.Employees, plural(res.Employees, "employee", "employees"),
		res.Permissions, plural(res.Permissions, "permission", "permissions"), verb(dryRun))
	if res.ImportID != "" {
		text += " (import " + res.ImportID + ")"
	}
	return out.Success(res, text)
}

// openService builds a service. Checks run without a store; everything
// else needs --db or --database-url.
func openService(ctx context.Context, opts *RootOptions, needStore bool) (*core.Service, func(), error) {
	if !needStore {
		return core.NewService(nil, opts.serviceOptions()), func() {}, nil
	}
	store, err := openStore(ctx, opts)
	if err != nil {
		return nil, nil, &ExitError{Code: ExitCommandError, Message: "open database", Err: err}
	}
	if store == nil {
		return nil, nil, &ExitError{Code: ExitCommandError, Message: "no database: pass --db or --database-url"}
	}
	return core.NewService(store, opts.serviceOptions()), func() { store.Close() }, nil
}

func openStore(ctx context.Context, opts *RootOptions) (core.Store, error) {
	switch {
	case opts.DatabaseURL != "":
		store, err := postgres.Connect(ctx, opts.DatabaseURL, postgres.PoolOptions{MaxConns: 2})
		if err != nil {
			return nil, err
		}
		return store, nil
	case opts.DBPath != "":
		store, err := sqlite.Open(opts.DBPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "read input", Err: err}
	}
	return data, nil
}

func cliContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return core.ContextWithRequester(ctx, core.Requester{Source: "cli", UserAgent: cmd.Root().Name()})
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
