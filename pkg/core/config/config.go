package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete application configuration
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Audio    AudioConfig    `toml:"audio"`
	Trigger  TriggerConfig  `toml:"trigger"`
	Workflow WorkflowConfig `toml:"workflow"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name      string `toml:"name"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// AudioConfig holds microphone capture settings
type AudioConfig struct {
	SampleRate  int      `toml:"sample_rate"`
	Channels    int      `toml:"channels"`
	FrameSize   int      `toml:"frame_size"`
	DeviceName  string   `toml:"device_name"`
	QueueSize   int      `toml:"queue_size"`
	PollTimeout Duration `toml:"poll_timeout"`
	JoinTimeout Duration `toml:"join_timeout"`
}

// TriggerConfig holds wake-word detection settings
type TriggerConfig struct {
	Threshold       float64 `toml:"threshold"`
	WindowSeconds   float64 `toml:"window_seconds"`
	CooldownSeconds float64 `toml:"cooldown_seconds"`
	Scorer          string  `toml:"scorer"`
	VADMode         int     `toml:"vad_mode"`
	QueueSize       int     `toml:"queue_size"`
}

// WorkflowConfig holds timings for the simulated interaction workflow
type WorkflowConfig struct {
	ListenDelay  Duration `toml:"listen_delay"`
	ProcessDelay Duration `toml:"process_delay"`
	RespondDelay Duration `toml:"respond_delay"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from the HARK_CONFIG environment variable
// or the default locations, falling back to built-in defaults if no file exists
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("HARK_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./configs/hark.toml",
			"./hark.toml",
			filepath.Join(os.Getenv("HOME"), ".config/hark/hark.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return Default(), nil
	}

	return Load(path)
}

// Default returns the built-in default configuration
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "hark"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "text"
	}

	// Audio
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.FrameSize == 0 {
		c.Audio.FrameSize = 1024
	}
	if c.Audio.QueueSize == 0 {
		c.Audio.QueueSize = 100
	}
	if c.Audio.PollTimeout.Duration == 0 {
		c.Audio.PollTimeout.Duration = 100 * time.Millisecond
	}
	if c.Audio.JoinTimeout.Duration == 0 {
		c.Audio.JoinTimeout.Duration = 2 * time.Second
	}

	// Trigger
	if c.Trigger.Threshold == 0 {
		c.Trigger.Threshold = 0.8
	}
	if c.Trigger.WindowSeconds == 0 {
		c.Trigger.WindowSeconds = 1.5
	}
	if c.Trigger.CooldownSeconds == 0 {
		c.Trigger.CooldownSeconds = 1.0
	}
	if c.Trigger.Scorer == "" {
		c.Trigger.Scorer = "energy"
	}
	if c.Trigger.QueueSize == 0 {
		c.Trigger.QueueSize = 100
	}

	// Workflow
	if c.Workflow.ListenDelay.Duration == 0 {
		c.Workflow.ListenDelay.Duration = 2 * time.Second
	}
	if c.Workflow.ProcessDelay.Duration == 0 {
		c.Workflow.ProcessDelay.Duration = 1 * time.Second
	}
	if c.Workflow.RespondDelay.Duration == 0 {
		c.Workflow.RespondDelay.Duration = 2 * time.Second
	}
}

// expandEnvVars expands ${VAR} references in string fields
func (c *Config) expandEnvVars() {
	c.Audio.DeviceName = os.ExpandEnv(c.Audio.DeviceName)
}

// Validate checks configuration value ranges
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels < 1 {
		return fmt.Errorf("audio.channels must be at least 1, got %d", c.Audio.Channels)
	}
	if c.Audio.FrameSize <= 0 {
		return fmt.Errorf("audio.frame_size must be positive, got %d", c.Audio.FrameSize)
	}
	if c.Trigger.Threshold < 0 || c.Trigger.Threshold > 1 {
		return fmt.Errorf("trigger.threshold must be in [0,1], got %g", c.Trigger.Threshold)
	}
	if c.Trigger.WindowSeconds <= 0 {
		return fmt.Errorf("trigger.window_seconds must be positive, got %g", c.Trigger.WindowSeconds)
	}
	if c.Trigger.CooldownSeconds < 0 {
		return fmt.Errorf("trigger.cooldown_seconds must not be negative, got %g", c.Trigger.CooldownSeconds)
	}
	if c.Trigger.VADMode < 0 || c.Trigger.VADMode > 3 {
		return fmt.Errorf("trigger.vad_mode must be in [0,3], got %d", c.Trigger.VADMode)
	}
	return nil
}
