package encoder

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"micrecorder/internal/domain"
)

func testConfig(mode domain.SourceMode) domain.EncoderConfig {
	return domain.EncoderConfig{
		OutputPath: "/tmp/a.m4a",
		SourceMode: mode,
		Input:      mode.InputSource(),
		Params:     domain.DefaultEncodingParams(),
	}
}

func argValue(args []string, flag string) (string, bool) {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return "", false
	}
	return args[i+1], true
}

func TestBuildArgs_DeviceCapture(t *testing.T) {
	opts := DefaultOptions()
	opts.InputFormat = "pulse"
	opts.InputDevice = "default"

	args := buildArgs(opts, testConfig(domain.SourceMicrophone))

	format, _ := argValue(args, "-f")
	assert.Equal(t, "pulse", format)
	input, _ := argValue(args, "-i")
	assert.Equal(t, "default", input)
	codec, _ := argValue(args, "-c:a")
	assert.Equal(t, "aac", codec)
	bitrate, _ := argValue(args, "-b:a")
	assert.Equal(t, "128000", bitrate)
	rate, _ := argValue(args, "-ar")
	assert.Equal(t, "44100", rate)
	channels, _ := argValue(args, "-ac")
	assert.Equal(t, "1", channels)

	assert.Equal(t, "/tmp/a.m4a", args[len(args)-1])
	assert.Equal(t, "mp4", args[len(args)-2])
	assert.NotContains(t, args, "-af")
	assert.NotContains(t, args, "-re")
}

func TestBuildArgs_VoiceRecognitionAddsFilter(t *testing.T) {
	opts := DefaultOptions()

	mic := buildArgs(opts, testConfig(domain.SourceMicrophone))
	vr := buildArgs(opts, testConfig(domain.SourceVoiceRecognition))

	filter, ok := argValue(vr, "-af")
	require.True(t, ok)
	assert.Equal(t, DefaultVoiceFilter, filter)
	assert.NotEqual(t, mic, vr)
}

func TestBuildArgs_PortAudioReadsStdin(t *testing.T) {
	opts := DefaultOptions()
	opts.Capture = CapturePortAudio

	args := buildArgs(opts, testConfig(domain.SourceMicrophone))

	input, _ := argValue(args, "-i")
	assert.Equal(t, "pipe:0", input)
	format, _ := argValue(args, "-f")
	assert.Equal(t, "s16le", format)
}

func TestBuildArgs_ReadRealtime(t *testing.T) {
	opts := DefaultOptions()
	opts.InputFormat = "lavfi"
	opts.InputDevice = "sine=frequency=440"
	opts.ReadRealtime = true

	args := buildArgs(opts, testConfig(domain.SourceMicrophone))
	re := slices.Index(args, "-re")
	in := slices.Index(args, "-i")
	require.GreaterOrEqual(t, re, 0)
	assert.Less(t, re, in)
}

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 1}
		],
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "0.512000", "size": "9123"}
	}`)

	info, err := parseProbe("/tmp/a.m4a", data)
	require.NoError(t, err)
	assert.Equal(t, "aac", info.Codec)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, int64(9123), info.Size)
	assert.InDelta(t, float64(512*time.Millisecond), float64(info.Duration), float64(time.Microsecond))
}

func TestParseProbe_NoAudioStream(t *testing.T) {
	data := []byte(`{"streams": [{"codec_type": "video", "codec_name": "h264"}], "format": {}}`)

	_, err := parseProbe("/tmp/a.mp4", data)
	assert.Error(t, err)
}

func TestEncoderStateString(t *testing.T) {
	assert.Equal(t, "created", stateCreated.String())
	assert.Equal(t, "prepared", statePrepared.String())
	assert.Equal(t, "started", stateStarted.String())
	assert.Equal(t, "stopped", stateStopped.String())
	assert.Equal(t, "released", stateReleased.String())
	assert.Equal(t, "encoderState(9)", encoderState(9).String())
}
