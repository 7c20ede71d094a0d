package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"micrecorder/internal/application"
	"micrecorder/internal/domain"
	"micrecorder/internal/infra/httpapi"
)

type remoteFlags struct {
	url     string
	jsonOut bool
}

func (r *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.url, "url", "", "daemon URL (default: derived from http.addr)")
	cmd.Flags().BoolVar(&r.jsonOut, "json", false, "print the raw status as JSON")
}

func (r *remoteFlags) client(deps *Dependencies) *httpapi.Client {
	url := r.url
	if url == "" {
		url = baseURL(deps.Config.HTTP)
	}
	return httpapi.NewClient(url, deps.Config.HTTP.AuthToken)
}

func (r *remoteFlags) print(deps *Dependencies, st *application.Status) error {
	if r.jsonOut {
		enc := json.NewEncoder(deps.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	newFormatter(deps.Out).Status(*st)
	return nil
}

func NewStartCmd(deps *Dependencies) *cobra.Command {
	var remote remoteFlags
	var output string
	var source string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Ask the daemon to start recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := domain.ParseSourceMode(source); err != nil {
				return err
			}
			st, err := remote.client(deps).Start(cmd.Context(), output, source)
			if err != nil {
				return err
			}
			return remote.print(deps, st)
		},
	}

	remote.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file on the daemon host (default: generated)")
	cmd.Flags().StringVarP(&source, "source", "s", "mic", "input source: mic or vr")

	return cmd
}

func NewStopCmd(deps *Dependencies) *cobra.Command {
	var remote remoteFlags

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask the daemon to stop recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := remote.client(deps).Stop(cmd.Context())
			if err != nil {
				return err
			}
			return remote.print(deps, st)
		},
	}

	remote.register(cmd)
	return cmd
}

func NewStatusCmd(deps *Dependencies) *cobra.Command {
	var remote remoteFlags
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's recording state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := remote.client(deps)
			for {
				st, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if err := remote.print(deps, st); err != nil {
					return err
				}
				if watch <= 0 {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(watch):
				}
			}
		},
	}

	remote.register(cmd)
	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "refresh at this interval until interrupted")

	return cmd
}
