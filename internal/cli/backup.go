package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/blogstore/internal/backup"
)

// NewBackupCommand creates the backup command and its subcommands.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import the entity collections as JSON",
	}
	cmd.AddCommand(newBackupExportCommand(rootOpts))
	cmd.AddCommand(newBackupImportCommand(rootOpts))
	return cmd
}

func newBackupExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write users, posts and chats into a new timestamped directory",
		Long: `Write users.json, posts.json and chats.json into <dir>/backup-<UTC time>/.

Example:
  blogstore backup export ./backups`,
		Args: cobra.ExactArgs(1),
		RunE: runE(rootOpts, func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := backup.Export(commandContext(cmd), a.blog, args[0], a.clock.Now())
			if err != nil {
				return WrapExitError(ExitFailure, "backup export failed", err)
			}
			return a.out.Success(sum, func(w io.Writer) {
				fmt.Fprintf(w, "Backup written to %s\n", sum.Dir)
				fmt.Fprintf(w, "  users: %d\n  posts: %d\n  chats: %d\n", sum.Users, sum.Posts, sum.Chats)
			})
		}),
	}
}

func newBackupImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Replace collections from the backup files in a directory",
		Long: `Validate users.json, posts.json and chats.json in <dir> and replace the
matching collections. Missing files are skipped; if any present file is
invalid nothing is written.

The store is bootstrapped after the import, so counters missing before it
start above the imported ids. Counters that already existed are not moved.

Example:
  blogstore backup import ./backups/backup-2024-05-04T10-30-00-000Z`,
		Args: cobra.ExactArgs(1),
		RunE: runE(rootOpts, func(cmd *cobra.Command, args []string) error {
			a, err := openStore(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			a.attachBlog()

			sum, err := backup.Import(commandContext(cmd), a.blog, args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "backup import failed", err)
			}
			if err := a.bootstrap(cmd); err != nil {
				return err
			}
			return a.out.Success(sum, func(w io.Writer) {
				fmt.Fprintf(w, "Imported from %s\n", sum.Dir)
				for _, c := range []struct {
					name string
					n    int
				}{{"users", sum.Users}, {"posts", sum.Posts}, {"chats", sum.Chats}} {
					if c.n < 0 {
						fmt.Fprintf(w, "  %s: skipped (no file)\n", c.name)
						continue
					}
					fmt.Fprintf(w, "  %s: %d\n", c.name, c.n)
				}
			})
		}),
	}
}
