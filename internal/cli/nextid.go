package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/blogstore/internal/model"
)

// NextIDResult is the output of the next-id command.
type NextIDResult struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// NewNextIDCommand creates the next-id command.
func NewNextIDCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next-id <users|posts|chats>",
		Short: "Allocate the next id for a collection",
		Long: `Reserve and print the next id for a collection. The id is consumed even
if nothing is ever stored under it.

Example:
  blogstore next-id posts`,
		Args: cobra.ExactArgs(1),
		RunE: runE(rootOpts, func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid collection", err)
			}

			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.blog.Next(commandContext(cmd), kind)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to allocate id", err)
			}

			result := NextIDResult{Kind: kind.String(), ID: id}
			return a.out.Success(result, func(w io.Writer) {
				fmt.Fprintln(w, id)
			})
		}),
	}
}
