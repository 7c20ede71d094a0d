package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"micrecorder/internal/infra/httpapi"
	"micrecorder/internal/infra/library"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recorder daemon",
		Long:  "Run the recorder service and its HTTP command API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, deps)
		},
	}
}

func runServe(ctx context.Context, deps *Dependencies) error {
	cfg := deps.Config
	logger := deps.Logger

	presenter := newPresenter(cfg, baseURL(cfg.HTTP), logger)
	svc := newService(cfg, serviceConfig(cfg), presenter, logger)

	limiter := httpapi.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow).
		TrustProxy(cfg.HTTP.TrustProxy)
	server := httpapi.NewServer(cfg.HTTP.Addr, cfg.HTTP.AuthToken, limiter, svc, logger).
		WithStopToken(cfg.HTTP.StopToken).
		WithRecordings(library.New(cfg.Recorder.OutputDir))

	logger.Info("starting recorder daemon",
		"addr", cfg.HTTP.Addr,
		"capture", cfg.Recorder.Capture,
		"output_dir", cfg.Recorder.OutputDir,
		"pushover", cfg.Pushover.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("recorder daemon stopped", "error", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}
