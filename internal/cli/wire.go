package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"micrecorder/config"
	"micrecorder/internal/application"
	"micrecorder/internal/domain"
	"micrecorder/internal/infra/encoder"
	"micrecorder/internal/infra/pushover"
)

func encoderOptions(cfg config.RecorderConfig) encoder.Options {
	opts := encoder.DefaultOptions()
	opts.FFmpegPath = cfg.FFmpegPath
	opts.Capture = cfg.Capture
	opts.ReadRealtime = cfg.ReadRealtime
	opts.StartupGrace = cfg.StartupGrace
	opts.StopTimeout = cfg.StopTimeout
	if cfg.InputFormat != "" {
		opts.InputFormat = cfg.InputFormat
	}
	if cfg.InputDevice != "" {
		opts.InputDevice = cfg.InputDevice
	}
	if cfg.VoiceFilter != "" {
		opts.VoiceFilter = cfg.VoiceFilter
	}
	return opts
}

func encodingParams(cfg config.RecorderConfig) domain.EncodingParams {
	p := domain.DefaultEncodingParams()
	p.BitRate = cfg.BitRate
	return p
}

func serviceConfig(cfg *config.Config) application.ServiceConfig {
	sc := application.DefaultServiceConfig()
	sc.OutputDir = cfg.Recorder.OutputDir
	sc.FilePrefix = cfg.Recorder.FilePrefix
	sc.Title = cfg.Notification.Title
	sc.Channel.Name = cfg.Notification.ChannelName
	sc.Channel.Importance = domain.Importance(cfg.Notification.Importance)
	return sc
}

// newPresenter picks Pushover when enabled. actionURL is empty when no HTTP
// API is listening for the Stop link.
func newPresenter(cfg *config.Config, actionURL string, logger *slog.Logger) application.Presenter {
	if cfg.Pushover.Enabled {
		url, token := stopLink(cfg.HTTP, actionURL)
		return pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, url, token)
	}
	return &application.LogPresenter{Logger: logger}
}

// stopLink returns the base URL and token for notification Stop links. The
// admin token is never put in a link: with auth enabled and no stop_token,
// notifications carry no link.
func stopLink(cfg config.HTTPConfig, actionURL string) (string, string) {
	if cfg.AuthToken == "" {
		return actionURL, ""
	}
	if cfg.StopToken == "" {
		return "", ""
	}
	return actionURL, cfg.StopToken
}

func newService(cfg *config.Config, sc application.ServiceConfig, presenter application.Presenter, logger *slog.Logger) *application.Service {
	factory := encoder.NewFactory(encoderOptions(cfg.Recorder), logger)
	session := application.NewRecordingSession(factory, encodingParams(cfg.Recorder), logger)
	prober := encoder.NewProber(cfg.Recorder.FFprobePath)
	return application.NewService(session, presenter, prober, sc, logger)
}

// baseURL derives the daemon URL from its listen address.
func baseURL(cfg config.HTTPConfig) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	addr := cfg.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "127.0.0.1" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return fmt.Sprintf("http://%s", addr)
}
