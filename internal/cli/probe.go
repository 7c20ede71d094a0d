package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"micrecorder/internal/infra/encoder"
)

func NewProbeCmd(deps *Dependencies) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Describe a finished recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := encoder.NewProber(deps.Config.Recorder.FFprobePath).Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(deps.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			newFormatter(deps.Out).Recording(info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")
	return cmd
}
