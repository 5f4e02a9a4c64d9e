package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewclock/kiosk/internal/action"
	"github.com/crewclock/kiosk/internal/config"
	"github.com/crewclock/kiosk/internal/queue"
)

// NewQueueCommand creates the queue command group for inspecting and
// administering the durable action queue.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or administer the durable action queue",
	}

	cmd.AddCommand(newQueueListCommand(rootOpts))
	cmd.AddCommand(newQueueClearCommand(rootOpts))

	return cmd
}

func newQueueListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List pending actions awaiting sync",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			actions, err := store.ListAll(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list queue", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(actions, func(w io.Writer) {
				if len(actions) == 0 {
					fmt.Fprintln(w, "queue is empty")
					return
				}
				for _, a := range actions {
					fmt.Fprintf(w, "%s  %-10s  %s  %s%s\n",
						a.ID,
						a.Action,
						a.Code,
						a.Timestamp.Format(time.RFC3339),
						attestationNote(a),
					)
				}
				fmt.Fprintf(w, "%d pending\n", len(actions))
			})
		},
	}
}

func newQueueClearCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:          "clear",
		Short:        "Delete all pending actions (destructive)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return WrapExitError(ExitCommandError, "refusing to clear the queue without --force", nil)
			}

			store, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "failed to clear queue", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "queue cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion of pending, unsynced actions")
	return cmd
}

// openStore opens the queue database from the configured path.
func openStore(rootOpts *RootOptions) (*queue.Store, error) {
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	store, err := queue.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open queue database", err)
	}
	return store, nil
}

func attestationNote(a action.QueuedAction) string {
	if a.AttestationAccepted == nil {
		return ""
	}
	if *a.AttestationAccepted {
		return "  [attested]"
	}
	return "  [attestation rejected]"
}
