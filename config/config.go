package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Recorder     RecorderConfig     `yaml:"recorder"`
	HTTP         HTTPConfig         `yaml:"http"`
	Pushover     PushoverConfig     `yaml:"pushover"`
	Notification NotificationConfig `yaml:"notification"`
	Log          LogConfig          `yaml:"log"`
}

// RecorderConfig selects the capture input and output location. Output is
// always AAC in MP4 at 44.1 kHz mono; only the bit rate can be chosen.
type RecorderConfig struct {
	FFmpegPath   string `yaml:"ffmpeg_path" validate:"required"`
	FFprobePath  string `yaml:"ffprobe_path"`
	Capture      string `yaml:"capture" validate:"oneof=device portaudio"`
	InputFormat  string `yaml:"input_format"`
	InputDevice  string `yaml:"input_device"`
	ReadRealtime bool   `yaml:"read_realtime"`
	VoiceFilter  string `yaml:"voice_filter"`
	OutputDir    string `yaml:"output_dir" validate:"required"`
	FilePrefix   string `yaml:"file_prefix"`
	BitRate      int    `yaml:"bit_rate" validate:"oneof=96000 128000"`

	StartupGrace time.Duration `yaml:"startup_grace" validate:"gte=0"`
	StopTimeout  time.Duration `yaml:"stop_timeout" validate:"gt=0"`
}

// HTTPConfig configures the command API. StopToken only authorizes /stop; it
// is embedded in notification links and so leaves the host. TrustProxy keys
// rate limits by X-Forwarded-For / X-Real-IP and must only be enabled behind
// a reverse proxy that sets them. PublicURL is how notification links reach
// this daemon.
type HTTPConfig struct {
	Addr       string        `yaml:"addr" validate:"required"`
	AuthToken  string        `yaml:"auth_token"`
	StopToken  string        `yaml:"stop_token" validate:"omitempty,nefield=AuthToken"`
	RateLimit  int           `yaml:"rate_limit" validate:"gte=0"`
	RateWindow time.Duration `yaml:"rate_window" validate:"gte=0"`
	TrustProxy bool          `yaml:"trust_proxy"`
	PublicURL  string        `yaml:"public_url" validate:"omitempty,url"`
}

type PushoverConfig struct {
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
	UserKey string `yaml:"user_key" validate:"required_if=Enabled true"`
	Enabled bool   `yaml:"enabled"`
}

type NotificationConfig struct {
	Title       string `yaml:"title"`
	ChannelName string `yaml:"channel_name"`
	Importance  string `yaml:"importance" validate:"oneof=min low default high"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=text json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// Load reads a YAML config, expanding ${VAR} references from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Recorder.FFmpegPath == "" {
		c.Recorder.FFmpegPath = "ffmpeg"
	}
	if c.Recorder.FFprobePath == "" {
		c.Recorder.FFprobePath = "ffprobe"
	}
	if c.Recorder.Capture == "" {
		c.Recorder.Capture = "device"
	}
	if c.Recorder.OutputDir == "" {
		c.Recorder.OutputDir = "./recordings"
	}
	if c.Recorder.FilePrefix == "" {
		c.Recorder.FilePrefix = "BG_"
	}
	if c.Recorder.BitRate == 0 {
		c.Recorder.BitRate = 128000
	}
	if c.Recorder.StartupGrace == 0 {
		c.Recorder.StartupGrace = 300 * time.Millisecond
	}
	if c.Recorder.StopTimeout == 0 {
		c.Recorder.StopTimeout = 5 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 30
	}
	if c.HTTP.RateWindow == 0 {
		c.HTTP.RateWindow = time.Minute
	}
	if c.Notification.Title == "" {
		c.Notification.Title = "Mic Recorder"
	}
	if c.Notification.ChannelName == "" {
		c.Notification.ChannelName = "Recording"
	}
	if c.Notification.Importance == "" {
		c.Notification.Importance = "low"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
}
