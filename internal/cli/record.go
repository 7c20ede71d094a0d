package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"micrecorder/internal/domain"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var output string
	var source string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record in the foreground until interrupted",
		Long:  "Start a recording, stop it on Ctrl+C, SIGTERM or after --duration, then exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := domain.ParseSourceMode(source)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRecord(ctx, deps, domain.StartCommand(output, mode), duration)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <output_dir>/<prefix>yyyyMMdd_HHmmss.m4a)")
	cmd.Flags().StringVarP(&source, "source", "s", "mic", "input source: mic or vr")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long (0 records until interrupted)")

	return cmd
}

func runRecord(ctx context.Context, deps *Dependencies, start domain.Command, duration time.Duration) error {
	cfg := deps.Config
	f := newFormatter(deps.Out)

	sc := serviceConfig(cfg)
	sc.ExitOnTeardown = true
	svc := newService(cfg, sc, newPresenter(cfg, "", deps.Logger), deps.Logger)

	runErr := make(chan error, 1)
	go func() {
		// The loop outlives ctx so the stop below can finalize the file.
		runErr <- svc.Run(context.Background())
	}()

	status, err := svc.Do(ctx, start)
	if err != nil {
		// A start still queued when ctx ended is undone by this stop.
		_ = svc.Submit(domain.StopCommand())
		<-runErr
		return err
	}
	f.RecordingStarted(status.Session)

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
	case <-timeout:
	case <-svc.Done():
	}

	if err := svc.Submit(domain.StopCommand()); err != nil && !errors.Is(err, domain.ErrServiceClosed) {
		return err
	}
	if err := <-runErr; err != nil {
		return err
	}

	final := svc.Status()
	if final.LastRecording != nil {
		f.Recording(final.LastRecording)
	} else {
		f.Success("Recording stopped: " + status.Session.OutputPath)
	}
	return nil
}
