package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"micrecorder/internal/domain"
)

// RecordingSession owns at most one encoder at a time. Start and Stop are
// expected to be called from a single goroutine; mu only guards the fields
// read by Snapshot.
type RecordingSession struct {
	factory EncoderFactory
	params  domain.EncodingParams
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	encoder Encoder
	info    domain.SessionInfo
}

func NewRecordingSession(factory EncoderFactory, params domain.EncodingParams, logger *slog.Logger) *RecordingSession {
	return &RecordingSession{
		factory: factory,
		params:  params,
		logger:  logger,
		now:     time.Now,
		info:    domain.SessionInfo{State: domain.StateIdle},
	}
}

// EncoderConfig returns the configuration an encoder started with these
// arguments would receive.
func (s *RecordingSession) EncoderConfig(outputPath string, mode domain.SourceMode) domain.EncoderConfig {
	if mode == "" {
		mode = domain.SourceMicrophone
	}
	return domain.EncoderConfig{
		OutputPath: outputPath,
		SourceMode: mode,
		Input:      mode.InputSource(),
		Params:     s.params,
	}
}

// Start begins a new recording, first stopping any recording in progress.
// On failure every partially acquired resource is released, the session is
// idle and the returned error is a *domain.AcquisitionError.
func (s *RecordingSession) Start(outputPath string, mode domain.SourceMode) error {
	s.Stop()

	cfg := s.EncoderConfig(outputPath, mode)
	cfg.SessionID = uuid.NewString()
	if cfg.OutputPath == "" {
		return &domain.AcquisitionError{Stage: domain.StageConfigure, Err: domain.ErrNoOutputPath}
	}

	enc, err := s.factory.NewEncoder(cfg)
	if err != nil {
		return &domain.AcquisitionError{Stage: domain.StageConfigure, Err: err}
	}

	acquired := false
	defer func() {
		if !acquired {
			s.discard(enc, false)
		}
	}()

	if err := enc.Prepare(); err != nil {
		return &domain.AcquisitionError{Stage: domain.StagePrepare, Err: err}
	}
	if err := enc.Start(); err != nil {
		return &domain.AcquisitionError{Stage: domain.StageStart, Err: err}
	}
	acquired = true

	s.mu.Lock()
	s.encoder = enc
	s.info = domain.SessionInfo{
		ID:         cfg.SessionID,
		State:      domain.StateRecording,
		OutputPath: cfg.OutputPath,
		SourceMode: cfg.SourceMode,
		StartedAt:  s.now(),
	}
	s.mu.Unlock()

	s.logger.Info("recording started",
		"session", cfg.SessionID,
		"path", cfg.OutputPath,
		"source", cfg.Input,
	)
	return nil
}

// Stop finalizes the output and releases the encoder. It is a no-op when
// idle. Finalization errors are logged and never prevent the release.
func (s *RecordingSession) Stop() {
	s.mu.Lock()
	enc := s.encoder
	s.encoder = nil
	s.info.State = domain.StateIdle
	id := s.info.ID
	s.mu.Unlock()

	if enc == nil {
		return
	}

	if err := s.discard(enc, true); err != nil {
		s.logger.Warn("recording stopped with errors", "session", id, "error", err)
		return
	}
	s.logger.Info("recording stopped", "session", id)
}

// discard is the only path by which an encoder leaves the session.
func (s *RecordingSession) discard(enc Encoder, finalize bool) error {
	var steps []teardownStep
	if finalize {
		steps = append(steps, teardownStep{name: "finalize", kind: domain.ErrFinalization, run: enc.Stop})
	}
	steps = append(steps, teardownStep{name: "release", kind: domain.ErrRelease, run: enc.Release})
	return runTeardown(s.logger, steps...)
}

func (s *RecordingSession) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.State
}

// Snapshot describes the current session, or the last one once idle.
func (s *RecordingSession) Snapshot() domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}
