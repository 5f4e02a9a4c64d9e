package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crewclock/kiosk/internal/config"
)

// NewCheckConfigCommand creates the check-config command: load and
// validate the config file against the embedded schema, then print the
// resolved values.
func NewCheckConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "check-config",
		Short:        "Validate the config file and print resolved values",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "config invalid", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(cfg, func(w io.Writer) {
				fmt.Fprintf(w, "config %s is valid\n", rootOpts.Config)
				fmt.Fprintf(w, "  gateway:        %s\n", cfg.Gateway.URL)
				fmt.Fprintf(w, "  database:       %s\n", cfg.Database.Path)
				fmt.Fprintf(w, "  sync interval:  %s\n", cfg.Sync.Interval.Std())
				fmt.Fprintf(w, "  probe url:      %s\n", cfg.Connectivity.ProbeURL)
			})
		},
	}
}
