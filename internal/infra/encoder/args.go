package encoder

import (
	"runtime"
	"strconv"
	"time"

	"micrecorder/internal/domain"
)

const (
	CaptureDevice    = "device"
	CapturePortAudio = "portaudio"
)

// DefaultVoiceFilter narrows the input to the speech band and evens out levels.
const DefaultVoiceFilter = "highpass=f=80,lowpass=f=7600,dynaudnorm"

// Options controls how ffmpeg is launched. Encoding parameters come from
// the session instead.
type Options struct {
	FFmpegPath string
	// Capture is CaptureDevice (ffmpeg opens the input itself) or
	// CapturePortAudio (PCM is pumped into ffmpeg's stdin).
	Capture     string
	InputFormat string
	InputDevice string
	// ReadRealtime adds -re, needed for synthetic inputs such as lavfi.
	ReadRealtime bool
	VoiceFilter  string
	StartupGrace time.Duration
	StopTimeout  time.Duration
}

// DefaultOptions captures from the platform's default audio input.
func DefaultOptions() Options {
	format, device := defaultInput()
	return Options{
		FFmpegPath:   "ffmpeg",
		Capture:      CaptureDevice,
		InputFormat:  format,
		InputDevice:  device,
		VoiceFilter:  DefaultVoiceFilter,
		StartupGrace: 300 * time.Millisecond,
		StopTimeout:  5 * time.Second,
	}
}

func defaultInput() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":default"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

// buildArgs returns the ffmpeg arguments that record cfg.
func buildArgs(opts Options, cfg domain.EncoderConfig) []string {
	p := cfg.Params
	sampleRate := strconv.Itoa(p.SampleRate)
	channels := strconv.Itoa(p.Channels)

	args := []string{"-hide_banner", "-nostats", "-loglevel", "warning", "-y"}

	switch opts.Capture {
	case CapturePortAudio:
		args = append(args,
			"-f", "s16le",
			"-ar", sampleRate,
			"-ac", channels,
			"-i", "pipe:0",
		)
	default:
		if opts.ReadRealtime {
			args = append(args, "-re")
		}
		args = append(args, "-f", opts.InputFormat, "-i", opts.InputDevice)
	}

	if cfg.Input == domain.InputSourceVoiceRecognition {
		filter := opts.VoiceFilter
		if filter == "" {
			filter = DefaultVoiceFilter
		}
		args = append(args, "-af", filter)
	}

	args = append(args,
		"-vn",
		"-ac", channels,
		"-ar", sampleRate,
		"-c:a", p.Codec,
		"-b:a", strconv.Itoa(p.BitRate),
		"-f", p.Container,
		cfg.OutputPath,
	)
	return args
}
