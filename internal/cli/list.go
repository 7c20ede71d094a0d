package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"micrecorder/internal/infra/library"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	var remote remoteFlags
	var fromDaemon bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List finished recordings",
		Long:  "List recordings in the output directory, or ask the daemon with --remote.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []library.Entry
			var err error
			if fromDaemon {
				entries, err = remote.client(deps).Recordings(cmd.Context())
			} else {
				entries, err = library.New(deps.Config.Recorder.OutputDir).List()
			}
			if err != nil {
				return err
			}

			if remote.jsonOut {
				enc := json.NewEncoder(deps.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			newFormatter(deps.Out).RecordingList(entries)
			return nil
		},
	}

	remote.register(cmd)
	cmd.Flags().BoolVar(&fromDaemon, "remote", false, "list recordings on the daemon host")

	return cmd
}
