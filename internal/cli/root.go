package cli

import (
	"fmt"
	"slices"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Clock overrides the wall clock (for testing). Nil means real time.
	Clock quartz.Clock

	// Registerer receives allocator and recorder metrics. Nil means a
	// private registry per command.
	Registerer prometheus.Registerer

	// NewID overrides analytics event ids (for testing).
	NewID func() string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the blogstore CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions is NewRootCommand with injected collaborators.
// Flag values are parsed into opts.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blogstore",
		Short: "Blog persistence and analytics toolkit",
		Long: `blogstore manages the durable collections behind the blog (users, posts,
chats), their id counters, and the analytics event log.

The store is selected by configuration: SQLite through mattn/go-sqlite3
(sqlite3) or modernc.org/sqlite (sqlite), PostgreSQL (postgres), or an
embedded bbolt file (bolt).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: ./blogstore.toml, then ~/.config/blogstore/blogstore.toml)")

	cmd.AddCommand(NewBootstrapCommand(opts))
	cmd.AddCommand(NewNextIDCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
