package application

import (
	"context"

	"micrecorder/internal/domain"
)

// Encoder is one acquired capture+encode resource. Calls follow the order
// Prepare, Start, Stop, Release; Release must be safe in any state and more
// than once.
type Encoder interface {
	Prepare() error
	Start() error
	// Stop finalizes the output container and returns once it is complete.
	Stop() error
	Release() error
}

type EncoderFactory interface {
	NewEncoder(cfg domain.EncoderConfig) (Encoder, error)
}

type EncoderFactoryFunc func(cfg domain.EncoderConfig) (Encoder, error)

func (f EncoderFactoryFunc) NewEncoder(cfg domain.EncoderConfig) (Encoder, error) {
	return f(cfg)
}

// Prober inspects a finished recording.
type Prober interface {
	Probe(ctx context.Context, path string) (*domain.RecordingInfo, error)
}
