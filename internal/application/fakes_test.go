package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"micrecorder/internal/application"
	"micrecorder/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEncoder struct {
	cfg     domain.EncoderConfig
	factory *fakeFactory

	prepareErr error
	startErr   error
	stopErr    error
	stopPanic  bool
	onStop     func()

	prepared bool
	started  bool
	stopped  bool
	released int
}

func (e *fakeEncoder) Prepare() error {
	e.factory.record("prepare")
	if e.prepareErr != nil {
		return e.prepareErr
	}
	e.prepared = true
	return nil
}

func (e *fakeEncoder) Start() error {
	e.factory.record("start")
	if e.startErr != nil {
		return e.startErr
	}
	e.started = true
	return nil
}

func (e *fakeEncoder) Stop() error {
	e.factory.record("stop")
	if e.onStop != nil {
		e.onStop()
	}
	if e.stopPanic {
		panic("stop called in invalid state")
	}
	e.stopped = true
	return e.stopErr
}

func (e *fakeEncoder) Release() error {
	e.factory.record("release")
	e.released++
	e.factory.mu.Lock()
	e.factory.live--
	e.factory.mu.Unlock()
	return nil
}

// fakeFactory hands out fakeEncoders and tracks how many are held.
type fakeFactory struct {
	mu        sync.Mutex
	encoders  []*fakeEncoder
	calls     []string
	live      int
	maxLive   int
	newErr    error
	configure func(n int, e *fakeEncoder)
}

func (f *fakeFactory) NewEncoder(cfg domain.EncoderConfig) (application.Encoder, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	e := &fakeEncoder{cfg: cfg, factory: f}
	f.mu.Lock()
	n := len(f.encoders)
	f.encoders = append(f.encoders, e)
	f.live++
	if f.live > f.maxLive {
		f.maxLive = f.live
	}
	f.mu.Unlock()
	if f.configure != nil {
		f.configure(n, e)
	}
	return e, nil
}

func (f *fakeFactory) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeFactory) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

type recordedNotification struct {
	dismissed bool
	n         domain.Notification
}

type fakePresenter struct {
	mu         sync.Mutex
	channels   []domain.Channel
	shown      []recordedNotification
	channelErr error
}

func (p *fakePresenter) EnsureChannel(_ context.Context, ch domain.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channelErr != nil {
		return p.channelErr
	}
	p.channels = append(p.channels, ch)
	return nil
}

func (p *fakePresenter) Show(_ context.Context, n domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, recordedNotification{n: n})
	return nil
}

func (p *fakePresenter) Dismiss(_ context.Context, id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, recordedNotification{dismissed: true, n: domain.Notification{ID: id}})
	return nil
}

func (p *fakePresenter) last() recordedNotification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown[len(p.shown)-1]
}

type fakeProber struct {
	paths []string
}

func (p *fakeProber) Probe(_ context.Context, path string) (*domain.RecordingInfo, error) {
	p.paths = append(p.paths, path)
	if path == "" {
		return nil, errors.New("empty path")
	}
	return &domain.RecordingInfo{Path: path, Format: "mov,mp4,m4a,3gp,3g2,mj2", Codec: "aac", Size: 1024}, nil
}
