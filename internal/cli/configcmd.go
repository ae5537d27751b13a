package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// ConfigResult is the JSON output of config show.
type ConfigResult struct {
	File string `json:"file"`
	TOML string `json:"toml"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Long: `Print the configuration after defaults, the config file and BLOGSTORE_*
environment variables are applied. The output is a valid blogstore.toml.`,
		Args: cobra.NoArgs,
		RunE: runE(rootOpts, func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			data, err := cfg.Render()
			if err != nil {
				return WrapExitError(ExitFailure, "failed to render config", err)
			}

			result := ConfigResult{File: cfg.File, TOML: string(data)}
			return newFormatter(cmd, rootOpts).Success(result, func(w io.Writer) {
				w.Write(data)
			})
		}),
	})

	return cmd
}
