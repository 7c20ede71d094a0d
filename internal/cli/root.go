package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"micrecorder/config"
	"micrecorder/internal/logging"
	"micrecorder/internal/version"
)

const defaultConfigPath = "config.yaml"

// Dependencies is filled in by the root command before any subcommand runs.
type Dependencies struct {
	ConfigPath string
	Config     *config.Config
	Logger     *slog.Logger
	Out        io.Writer

	logCloser io.Closer
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	rootCmd := &cobra.Command{
		Use:           "recorderd",
		Short:         "Background microphone recorder",
		Long:          "Records the microphone to AAC/MP4 files in the background, driven over a small HTTP API or as a one-shot foreground recording.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return deps.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return deps.Close()
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.SetOut(deps.Out)

	rootCmd.PersistentFlags().StringVarP(&deps.ConfigPath, "config", "c", "", "path to config file (default: ./config.yaml when present)")

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewStartCmd(deps))
	rootCmd.AddCommand(NewStopCmd(deps))
	rootCmd.AddCommand(NewStatusCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewProbeCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewVersionCmd(deps))

	return rootCmd
}

func NewVersionCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(deps.Out, version.Full())
			return err
		},
	}
}

func (d *Dependencies) load() error {
	if d.Config == nil {
		cfg, err := loadConfig(d.ConfigPath)
		if err != nil {
			return err
		}
		d.Config = cfg
	}
	if d.Logger == nil {
		d.Logger, d.logCloser = logging.New(d.Config.Log)
	}
	return nil
}

// Close flushes the log file, if any.
func (d *Dependencies) Close() error {
	if d.logCloser == nil {
		return nil
	}
	err := d.logCloser.Close()
	d.logCloser = nil
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return config.Load(defaultConfigPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", defaultConfigPath, err)
	}
	return config.Default(), nil
}
