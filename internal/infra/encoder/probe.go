package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"micrecorder/internal/domain"
)

// Prober reads container metadata with ffprobe.
type Prober struct {
	path string
}

// NewProber uses ffprobePath, or ffprobe from PATH when it is empty.
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{path: ffprobePath}
}

func (p *Prober) Probe(ctx context.Context, path string) (*domain.RecordingInfo, error) {
	cmd := exec.CommandContext(ctx, p.path,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe %s: %w: %s", path, err, ee.Stderr)
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(path, out)
}

type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
}

func parseProbe(path string, data []byte) (*domain.RecordingInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	info := &domain.RecordingInfo{
		Path:   path,
		Format: out.Format.FormatName,
	}

	found := false
	for _, s := range out.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.Codec = s.CodecName
		info.Channels = s.Channels
		if s.SampleRate != "" {
			rate, err := strconv.Atoi(s.SampleRate)
			if err != nil {
				return nil, fmt.Errorf("parsing sample rate %q: %w", s.SampleRate, err)
			}
			info.SampleRate = rate
		}
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("%s has no audio stream", path)
	}

	if out.Format.Duration != "" {
		secs, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing duration %q: %w", out.Format.Duration, err)
		}
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	if out.Format.Size != "" {
		size, err := strconv.ParseInt(out.Format.Size, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing size %q: %w", out.Format.Size, err)
		}
		info.Size = size
	}
	return info, nil
}
