// Package cli implements the hrimport command line: checking and importing
// HR files and archives from disk.
package cli

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string // "json" | "text"
	Verbose bool

	// Store selection. DatabaseURL wins over DBPath.
	DBPath      string
	DatabaseURL string

	Encoding          string
	DataMember        string
	PermissionsMember string
	Timeout           time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the hrimport root command. Store flags default to
// SQLITE_PATH and DATABASE_URL from the environment.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hrimport",
		Short: "Check and import HR employee data",
		Long: `hrimport validates employee, department and permission files and
imports them into the HR database in a single transaction.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints errors a command has not reported itself
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)}
			}
			enc, err := core.CanonicalEncoding(opts.Encoding)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "invalid --encoding", Err: err}
			}
			opts.Encoding = enc

			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			// Logs go to stderr so JSON on stdout stays parseable.
			logging.Setup(cmd.ErrOrStderr(), level, "text")
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log import progress to stderr")
	flags.StringVar(&opts.DBPath, "db", os.Getenv("SQLITE_PATH"), "SQLite database file")
	flags.StringVar(&opts.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	flags.StringVar(&opts.Encoding, "encoding", "utf-8", "input encoding: "+fmt.Sprint(core.SupportedEncodings()))
	flags.StringVar(&opts.DataMember, "data-member", core.DefaultDataMember, "employees file name inside archives")
	flags.StringVar(&opts.PermissionsMember, "permissions-member", core.DefaultPermissionsMember, "permissions file name inside archives")
	flags.DurationVar(&opts.Timeout, "timeout", core.DefaultImportTimeout, "maximum duration of one import")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitCommandError, Message: "invalid flags", Err: err}
	})

	cmd.AddCommand(NewKindsCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewCheckArchiveCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewImportArchiveCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewPruneCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) serviceOptions() core.Options {
	return core.Options{
		DataMember:        o.DataMember,
		PermissionsMember: o.PermissionsMember,
		Encoding:          o.Encoding,
		Timeout:           o.Timeout,
		MaxConcurrent:     1,
	}
}
