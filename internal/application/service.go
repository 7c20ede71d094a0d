package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"micrecorder/internal/domain"
)

type ServiceConfig struct {
	OutputDir      string
	FilePrefix     string
	Title          string
	Channel        domain.Channel
	NotificationID int
	QueueSize      int
	// ExitOnTeardown makes Run return once the service leaves the
	// foreground, for one-shot recordings.
	ExitOnTeardown bool
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		OutputDir:  "./recordings",
		FilePrefix: "BG_",
		Title:      "Mic Recorder",
		Channel: domain.Channel{
			ID:          "recorder",
			Name:        "Recording",
			Description: "Background audio recording",
			Importance:  domain.ImportanceLow,
		},
		NotificationID: 1001,
		QueueSize:      8,
	}
}

type Status struct {
	State         domain.State          `json:"state"`
	Foreground    bool                  `json:"foreground"`
	Session       domain.SessionInfo    `json:"session"`
	LastRecording *domain.RecordingInfo `json:"last_recording,omitempty"`
	LastError     string                `json:"last_error,omitempty"`
}

type request struct {
	cmd   domain.Command
	reply chan result
}

type result struct {
	status Status
	err    error
}

// Service hosts a RecordingSession. Commands are processed one at a time on
// the goroutine running Run.
type Service struct {
	session   *RecordingSession
	presenter Presenter
	prober    Prober
	cfg       ServiceConfig
	logger    *slog.Logger
	now       func() time.Time

	queue chan request
	done  chan struct{}

	channelReady bool

	mu         sync.Mutex
	foreground bool
	last       *domain.RecordingInfo
	lastErr    error
}

// NewService wires the host around session. prober may be nil.
func NewService(session *RecordingSession, presenter Presenter, prober Prober, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8
	}
	if presenter == nil {
		presenter = NoopPresenter{}
	}
	return &Service{
		session:   session,
		presenter: presenter,
		prober:    prober,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		queue:     make(chan request, cfg.QueueSize),
		done:      make(chan struct{}),
	}
}

// Run processes queued commands one at a time until ctx is cancelled, or
// until teardown leaves the foreground when ExitOnTeardown is set. The
// session is destroyed on return.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.destroy()

	s.ensureChannel(ctx)
	s.logger.Info("recorder service ready", "output_dir", s.cfg.OutputDir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.queue:
			err := s.handle(ctx, req.cmd)
			if req.reply != nil {
				req.reply <- result{status: s.Status(), err: err}
			}
			if s.cfg.ExitOnTeardown && !s.isForeground() {
				return err
			}
		}
	}
}

// Do queues cmd and waits until it has been processed.
func (s *Service) Do(ctx context.Context, cmd domain.Command) (Status, error) {
	req := request{cmd: cmd, reply: make(chan result, 1)}

	select {
	case s.queue <- req:
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-s.done:
		return Status{}, domain.ErrServiceClosed
	}

	select {
	case r := <-req.reply:
		return r.status, r.err
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-s.done:
		select {
		case r := <-req.reply:
			return r.status, r.err
		default:
			return Status{}, domain.ErrServiceClosed
		}
	}
}

// Submit queues cmd without waiting for it.
func (s *Service) Submit(cmd domain.Command) error {
	select {
	case <-s.done:
		return domain.ErrServiceClosed
	default:
	}
	select {
	case s.queue <- request{cmd: cmd}:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Done is closed when Run has returned.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Status snapshots the session and the foreground flag.
func (s *Service) Status() Status {
	info := s.session.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:         info.State,
		Foreground:    s.foreground,
		Session:       info,
		LastRecording: s.last,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Service) handle(ctx context.Context, cmd domain.Command) error {
	switch cmd.Kind {
	case domain.CommandStart:
		return s.handleStart(ctx, cmd)
	case domain.CommandStop:
		return s.handleStop(ctx)
	default:
		return fmt.Errorf("unknown command: %q", cmd.Kind)
	}
}

func (s *Service) handleStart(ctx context.Context, cmd domain.Command) error {
	if s.session.State() == domain.StateRecording {
		s.finishRecording(ctx)
	}

	path := cmd.OutputPath
	if path == "" {
		path = s.defaultOutputPath()
	}

	s.enterForeground(ctx)

	if err := s.session.Start(path, cmd.SourceMode); err != nil {
		s.logger.Error("starting recording", "path", path, "error", err)
		s.teardown(ctx, "Recording failed", err)
		return err
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	s.show(ctx, domain.Notification{
		ID:        s.cfg.NotificationID,
		ChannelID: s.cfg.Channel.ID,
		Title:     s.cfg.Title,
		Text:      "Recording in progress",
		Ongoing:   true,
		Actions:   []domain.NotificationAction{{Label: "Stop", Command: domain.StopCommand()}},
	})
	return nil
}

func (s *Service) handleStop(ctx context.Context) error {
	if s.session.State() == domain.StateIdle && !s.isForeground() {
		return nil
	}
	s.finishRecording(ctx)
	s.teardown(ctx, "Recording stopped", nil)
	return nil
}

// finishRecording stops the session; the output is finalized when it returns.
func (s *Service) finishRecording(ctx context.Context) {
	info := s.session.Snapshot()
	s.session.Stop()

	if s.prober == nil || info.OutputPath == "" {
		return
	}
	rec, err := s.prober.Probe(ctx, info.OutputPath)
	if err != nil {
		s.logger.Warn("probing recording", "path", info.OutputPath, "error", err)
		return
	}
	s.logger.Info("recording saved",
		"path", rec.Path,
		"duration", rec.Duration,
		"bytes", rec.Size,
	)
	s.mu.Lock()
	s.last = rec
	s.mu.Unlock()
}

func (s *Service) enterForeground(ctx context.Context) {
	s.mu.Lock()
	already := s.foreground
	s.foreground = true
	s.mu.Unlock()
	if already {
		return
	}

	s.logger.Debug("entering foreground")
	s.show(ctx, domain.Notification{
		ID:        s.cfg.NotificationID,
		ChannelID: s.cfg.Channel.ID,
		Title:     s.cfg.Title,
		Text:      "Starting recording",
		Ongoing:   true,
		Actions:   []domain.NotificationAction{{Label: "Stop", Command: domain.StopCommand()}},
	})
}

// teardown leaves the foreground. It runs after the session is idle.
func (s *Service) teardown(ctx context.Context, text string, cause error) {
	s.session.Stop()

	if cause != nil {
		text = fmt.Sprintf("%s: %v", text, cause)
	}
	s.show(ctx, domain.Notification{
		ID:        s.cfg.NotificationID,
		ChannelID: s.cfg.Channel.ID,
		Title:     s.cfg.Title,
		Text:      text,
	})

	s.mu.Lock()
	s.foreground = false
	s.lastErr = cause
	s.mu.Unlock()
	s.logger.Debug("left foreground")
}

func (s *Service) destroy() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.session.State() == domain.StateRecording {
		s.finishRecording(ctx)
	}
	s.mu.Lock()
	s.foreground = false
	s.mu.Unlock()

	if err := s.presenter.Dismiss(ctx, s.cfg.NotificationID); err != nil {
		s.logger.Warn("dismissing notification", "error", err)
	}
	s.logger.Info("recorder service stopped")
}

func (s *Service) ensureChannel(ctx context.Context) bool {
	if s.channelReady {
		return true
	}
	if err := s.presenter.EnsureChannel(ctx, s.cfg.Channel); err != nil {
		s.logger.Warn("registering notification channel", "channel", s.cfg.Channel.ID, "error", err)
		return false
	}
	s.channelReady = true
	return true
}

func (s *Service) show(ctx context.Context, n domain.Notification) {
	if !s.ensureChannel(ctx) {
		return
	}
	if err := s.presenter.Show(ctx, n); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("showing notification", "id", n.ID, "error", err)
	}
}

func (s *Service) isForeground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foreground
}

func (s *Service) defaultOutputPath() string {
	name := s.cfg.FilePrefix + s.now().Format("20060102_150405") + ".m4a"
	return filepath.Join(s.cfg.OutputDir, name)
}
