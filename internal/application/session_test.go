package application_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"micrecorder/internal/application"
	"micrecorder/internal/domain"
)

func newSession(f *fakeFactory) *application.RecordingSession {
	return application.NewRecordingSession(f, domain.DefaultEncodingParams(), discardLogger())
}

func TestRecordingSession_StartStop(t *testing.T) {
	f := &fakeFactory{}
	s := newSession(f)

	require.NoError(t, s.Start("/tmp/a.m4a", domain.SourceMicrophone))
	assert.Equal(t, domain.StateRecording, s.State())

	info := s.Snapshot()
	assert.Equal(t, "/tmp/a.m4a", info.OutputPath)
	assert.NotEmpty(t, info.ID)
	assert.False(t, info.StartedAt.IsZero())

	s.Stop()
	assert.Equal(t, domain.StateIdle, s.State())
	assert.Equal(t, []string{"prepare", "start", "stop", "release"}, f.calls)
	assert.Equal(t, 0, f.liveCount())
}

func TestRecordingSession_StartTwiceHoldsOneEncoder(t *testing.T) {
	f := &fakeFactory{}
	s := newSession(f)

	require.NoError(t, s.Start("/tmp/a.m4a", domain.SourceMicrophone))
	require.NoError(t, s.Start("/tmp/b.m4a", domain.SourceMicrophone))

	require.Len(t, f.encoders, 2)
	first := f.encoders[0]
	assert.True(t, first.stopped, "first encoder must be finalized")
	assert.Equal(t, 1, first.released)
	assert.Equal(t, 1, f.maxLive, "never more than one encoder held")
	assert.Equal(t, 1, f.liveCount())
	assert.Equal(t, "/tmp/b.m4a", s.Snapshot().OutputPath)

	s.Stop()
	assert.Equal(t, 0, f.liveCount())
}

func TestRecordingSession_StopIsIdempotent(t *testing.T) {
	f := &fakeFactory{}
	s := newSession(f)

	s.Stop()
	assert.Empty(t, f.calls)

	require.NoError(t, s.Start("/tmp/a.m4a", domain.SourceMicrophone))
	s.Stop()
	s.Stop()

	assert.Equal(t, domain.StateIdle, s.State())
	assert.Equal(t, 1, f.encoders[0].released)
}

func TestRecordingSession_FinalizationFailureStillReleases(t *testing.T) {
	f := &fakeFactory{
		configure: func(n int, e *fakeEncoder) {
			if n == 0 {
				e.stopErr = errors.New("stop failed: no valid audio data received")
			}
		},
	}
	s := newSession(f)

	require.NoError(t, s.Start("/tmp/a.m4a", domain.SourceMicrophone))
	s.Stop()

	assert.Equal(t, domain.StateIdle, s.State())
	assert.Equal(t, 1, f.encoders[0].released)

	require.NoError(t, s.Start("/tmp/b.m4a", domain.SourceMicrophone), "session must be reusable")
	assert.Equal(t, domain.StateRecording, s.State())
}

func TestRecordingSession_FinalizationPanicStillReleases(t *testing.T) {
	f := &fakeFactory{
		configure: func(_ int, e *fakeEncoder) { e.stopPanic = true },
	}
	s := newSession(f)

	require.NoError(t, s.Start("/tmp/a.m4a", domain.SourceMicrophone))
	assert.NotPanics(t, s.Stop)
	assert.Equal(t, 1, f.encoders[0].released)
	assert.Equal(t, 0, f.liveCount())
}

func TestRecordingSession_AcquisitionFailures(t *testing.T) {
	tests := []struct {
		name      string
		configure func(int, *fakeEncoder)
		stage     domain.AcquisitionStage
	}{
		{
			name:      "prepare fails",
			configure: func(_ int, e *fakeEncoder) { e.prepareErr = errors.New("permission denied") },
			stage:     domain.StagePrepare,
		},
		{
			name:      "start fails",
			configure: func(_ int, e *fakeEncoder) { e.startErr = errors.New("device busy") },
			stage:     domain.StageStart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFactory{configure: tt.configure}
			s := newSession(f)

			err := s.Start("/tmp/a.m4a", domain.SourceMicrophone)
			require.Error(t, err)

			var ae *domain.AcquisitionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.stage, ae.Stage)
			assert.Equal(t, domain.StateIdle, s.State())
			assert.Equal(t, 1, f.encoders[0].released)
			assert.False(t, f.encoders[0].stopped, "a failed encoder is released, not finalized")
			assert.Equal(t, 0, f.liveCount())
		})
	}
}

func TestRecordingSession_FactoryFailure(t *testing.T) {
	f := &fakeFactory{newErr: errors.New("ffmpeg not found")}
	s := newSession(f)

	err := s.Start("/tmp/a.m4a", domain.SourceMicrophone)
	require.True(t, domain.IsAcquisitionError(err))
	assert.Equal(t, domain.StateIdle, s.State())
}

func TestRecordingSession_MissingOutputPath(t *testing.T) {
	f := &fakeFactory{}
	s := newSession(f)

	err := s.Start("", domain.SourceMicrophone)
	require.ErrorIs(t, err, domain.ErrNoOutputPath)
	assert.Empty(t, f.encoders)
}

func TestRecordingSession_SourceModeSelectsInput(t *testing.T) {
	s := newSession(&fakeFactory{})

	mic := s.EncoderConfig("/tmp/a.m4a", domain.SourceMicrophone)
	vr := s.EncoderConfig("/tmp/a.m4a", domain.SourceVoiceRecognition)
	def := s.EncoderConfig("/tmp/a.m4a", "")

	assert.Equal(t, domain.InputSourceMic, mic.Input)
	assert.Equal(t, domain.InputSourceVoiceRecognition, vr.Input)
	assert.NotEqual(t, mic.Input, vr.Input)
	assert.Equal(t, mic.Input, def.Input)
	assert.Equal(t, domain.DefaultEncodingParams(), vr.Params)
}

func TestRecordingSession_EncoderReceivesSnapshot(t *testing.T) {
	f := &fakeFactory{}
	s := newSession(f)

	require.NoError(t, s.Start("/tmp/vr.m4a", domain.SourceVoiceRecognition))
	defer s.Stop()

	cfg := f.encoders[0].cfg
	assert.Equal(t, domain.InputSourceVoiceRecognition, cfg.Input)
	assert.Equal(t, 44100, cfg.Params.SampleRate)
	assert.Equal(t, 1, cfg.Params.Channels)
	assert.Equal(t, "aac", cfg.Params.Codec)
	assert.Equal(t, s.Snapshot().ID, cfg.SessionID)
}
