package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"micrecorder/internal/infra/encoder"
)

var errDoctorFailed = errors.New("some prerequisites are missing")

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			f := newFormatter(deps.Out)
			ok := true

			check := func(name string, err error, detail string) {
				if err != nil {
					f.Check(name, false, err.Error())
					ok = false
					return
				}
				f.Check(name, true, detail)
			}

			path, err := exec.LookPath(cfg.Recorder.FFmpegPath)
			check("ffmpeg", err, path)

			path, err = exec.LookPath(cfg.Recorder.FFprobePath)
			check("ffprobe", err, path)

			switch cfg.Recorder.Capture {
			case encoder.CapturePortAudio:
				f.Check("Capture", true, "portaudio (requires a build with -tags portaudio)")
			default:
				opts := encoderOptions(cfg.Recorder)
				f.Check("Capture", true, fmt.Sprintf("ffmpeg -f %s -i %s", opts.InputFormat, opts.InputDevice))
			}

			check("Output directory", writableDir(cfg.Recorder.OutputDir), cfg.Recorder.OutputDir)

			if cfg.HTTP.AuthToken == "" && !loopback(cfg.HTTP.Addr) {
				f.Check("HTTP API", false, "listening on "+cfg.HTTP.Addr+" without auth_token")
				ok = false
			} else {
				f.Check("HTTP API", true, cfg.HTTP.Addr)
			}

			if cfg.Pushover.Enabled {
				f.Check("Pushover", true, "enabled")
				if cfg.HTTP.AuthToken != "" && cfg.HTTP.StopToken == "" {
					f.Info("Pushover: no stop_token, notifications carry no Stop link")
				}
			} else {
				f.Info("Pushover: disabled, notifications go to the log")
			}

			if !ok {
				f.Warning("Some prerequisites are missing.")
				return errDoctorFailed
			}
			f.Success("All prerequisites met. Ready to record!")
			return nil
		},
	}
}

func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}

func loopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
