package encoder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"micrecorder/internal/application"
	"micrecorder/internal/domain"
)

type encoderState int

const (
	stateCreated encoderState = iota
	statePrepared
	stateStarted
	stateStopped
	stateReleased
)

func (s encoderState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case statePrepared:
		return "prepared"
	case stateStarted:
		return "started"
	case stateStopped:
		return "stopped"
	case stateReleased:
		return "released"
	}
	return fmt.Sprintf("encoderState(%d)", int(s))
}

// Factory creates ffmpeg-backed encoders.
type Factory struct {
	opts   Options
	logger *slog.Logger
}

// NewFactory returns a Factory whose encoders share opts and log through logger.
func NewFactory(opts Options, logger *slog.Logger) *Factory {
	return &Factory{opts: opts, logger: logger}
}

// NewEncoder accepts only the mp4 container.
func (f *Factory) NewEncoder(cfg domain.EncoderConfig) (application.Encoder, error) {
	if cfg.Params.Container != "mp4" {
		return nil, fmt.Errorf("unsupported container %q", cfg.Params.Container)
	}
	return &FFmpegEncoder{
		opts:   f.opts,
		cfg:    cfg,
		logger: f.logger.With("session", cfg.SessionID),
	}, nil
}

// FFmpegEncoder records through a single ffmpeg process.
type FFmpegEncoder struct {
	opts   Options
	cfg    domain.EncoderConfig
	logger *slog.Logger

	state   encoderState
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	logFile *os.File
	logPath string
	capture capture

	exited  chan struct{}
	waitErr error

	// finalized is set once Stop produced a non-empty file; the ffmpeg log
	// is then removed on Release.
	finalized bool
}

func (e *FFmpegEncoder) Prepare() error {
	if e.state != stateCreated {
		return fmt.Errorf("prepare called in state %s", e.state)
	}
	if e.cfg.OutputPath == "" {
		return domain.ErrNoOutputPath
	}

	bin, err := exec.LookPath(e.opts.FFmpegPath)
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(e.cfg.OutputPath), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	e.logPath = e.cfg.OutputPath + ".ffmpeg.log"
	logFile, err := os.Create(e.logPath)
	if err != nil {
		return fmt.Errorf("creating ffmpeg log: %w", err)
	}
	e.logFile = logFile

	if e.opts.Capture == CapturePortAudio {
		c, err := newCapture(e.cfg.Params)
		if err != nil {
			return fmt.Errorf("opening capture: %w", err)
		}
		e.capture = c
	}

	args := buildArgs(e.opts, e.cfg)
	e.cmd = exec.Command(bin, args...)
	e.cmd.Stdout = logFile
	e.cmd.Stderr = logFile
	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening ffmpeg stdin: %w", err)
	}
	e.stdin = stdin

	e.logger.Debug("ffmpeg prepared", "args", strings.Join(args, " "))
	e.state = statePrepared
	return nil
}

func (e *FFmpegEncoder) Start() error {
	if e.state != statePrepared {
		return fmt.Errorf("start called in state %s", e.state)
	}

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}
	e.exited = make(chan struct{})
	go func() {
		e.waitErr = e.cmd.Wait()
		close(e.exited)
	}()
	e.state = stateStarted

	if e.capture != nil {
		if err := e.capture.Start(e.stdin); err != nil {
			return fmt.Errorf("starting capture: %w", err)
		}
	}

	select {
	case <-e.exited:
		return fmt.Errorf("ffmpeg exited during startup: %v: %s", e.waitErr, e.logTail())
	case <-time.After(e.opts.StartupGrace):
	}

	e.logger.Debug("ffmpeg started", "pid", e.cmd.Process.Pid)
	return nil
}

// Stop asks ffmpeg to finish the container and waits for it to exit.
func (e *FFmpegEncoder) Stop() error {
	if e.state != stateStarted {
		return fmt.Errorf("stop called in state %s", e.state)
	}
	e.state = stateStopped

	if e.capture != nil {
		if err := e.capture.Stop(); err != nil {
			e.logger.Warn("stopping capture", "error", err)
		}
		_ = e.stdin.Close()
	} else if _, err := io.WriteString(e.stdin, "q"); err != nil {
		e.logger.Debug("writing quit to ffmpeg", "error", err)
	}

	if err := e.awaitExit(); err != nil {
		return err
	}
	if e.waitErr != nil {
		return fmt.Errorf("ffmpeg exited: %w: %s", e.waitErr, e.logTail())
	}

	fi, err := os.Stat(e.cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("checking output: %w", err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("output %s is empty", e.cfg.OutputPath)
	}
	e.finalized = true
	return nil
}

func (e *FFmpegEncoder) awaitExit() error {
	select {
	case <-e.exited:
		return nil
	case <-time.After(e.opts.StopTimeout):
	}

	e.logger.Warn("ffmpeg did not finish in time, interrupting", "timeout", e.opts.StopTimeout)
	_ = e.cmd.Process.Signal(os.Interrupt)
	select {
	case <-e.exited:
		return nil
	case <-time.After(2 * time.Second):
	}

	_ = e.cmd.Process.Kill()
	<-e.exited
	return errors.New("ffmpeg killed before finalizing")
}

// Release frees the process, the capture device and the log file. The log is
// kept for diagnosis unless Stop succeeded. Safe to call in any state and more
// than once.
func (e *FFmpegEncoder) Release() error {
	if e.state == stateReleased {
		return nil
	}
	e.state = stateReleased

	var errs []error
	if e.exited != nil {
		select {
		case <-e.exited:
		default:
			if err := e.cmd.Process.Kill(); err != nil {
				errs = append(errs, fmt.Errorf("killing ffmpeg: %w", err))
			}
			<-e.exited
		}
	}
	if e.capture != nil {
		if err := e.capture.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing capture: %w", err))
		}
	}
	if e.stdin != nil {
		_ = e.stdin.Close()
	}
	if e.logFile != nil {
		if err := e.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing ffmpeg log: %w", err))
		}
		if e.finalized {
			if err := os.Remove(e.logPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("removing ffmpeg log: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

func (e *FFmpegEncoder) logTail() string {
	data, err := os.ReadFile(e.logPath)
	if err != nil {
		return ""
	}
	const tailSize = 512
	if len(data) > tailSize {
		data = data[len(data)-tailSize:]
	}
	return strings.TrimSpace(string(data))
}
