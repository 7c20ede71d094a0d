package domain

import (
	"fmt"
	"strings"
	"time"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

type SourceMode string

const (
	SourceMicrophone       SourceMode = "mic"
	SourceVoiceRecognition SourceMode = "vr"
)

// ParseSourceMode accepts "mic", "vr" and their long names. An empty value
// selects the microphone.
func ParseSourceMode(s string) (SourceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mic", "microphone":
		return SourceMicrophone, nil
	case "vr", "voice_recognition", "voice-recognition":
		return SourceVoiceRecognition, nil
	default:
		return "", fmt.Errorf("unknown source mode: %q", s)
	}
}

// InputSource is the concrete input selection handed to the encoder.
type InputSource string

const (
	InputSourceMic              InputSource = "microphone"
	InputSourceVoiceRecognition InputSource = "voice_recognition"
)

func (m SourceMode) InputSource() InputSource {
	if m == SourceVoiceRecognition {
		return InputSourceVoiceRecognition
	}
	return InputSourceMic
}

type EncodingParams struct {
	Container  string
	Codec      string
	SampleRate int
	Channels   int
	BitRate    int
}

func DefaultEncodingParams() EncodingParams {
	return EncodingParams{
		Container:  "mp4",
		Codec:      "aac",
		SampleRate: 44100,
		Channels:   1,
		BitRate:    128000,
	}
}

// EncoderConfig is the snapshot of everything the encoder is configured with,
// taken before the encoder is acquired.
type EncoderConfig struct {
	SessionID  string
	OutputPath string
	SourceMode SourceMode
	Input      InputSource
	Params     EncodingParams
}

// SessionInfo describes the session currently held (or last held) by the recorder.
type SessionInfo struct {
	ID         string     `json:"id"`
	State      State      `json:"state"`
	OutputPath string     `json:"output_path,omitempty"`
	SourceMode SourceMode `json:"source_mode,omitempty"`
	StartedAt  time.Time  `json:"started_at,omitzero"`
}

// RecordingInfo is what a finished output file looked like when probed.
type RecordingInfo struct {
	Path       string        `json:"path"`
	Format     string        `json:"format"`
	Codec      string        `json:"codec"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Size       int64         `json:"size"`
}
