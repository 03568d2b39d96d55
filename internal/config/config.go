package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultReachOutURL is offered when the backend reports the conversation limit.
const DefaultReachOutURL = "https://dub.sh/x-akg-conversation-end"

// Config stores runtime configuration for the interview client.
type Config struct {
	Backend  BackendConfig
	Audio    AudioConfig
	Deepgram DeepgramConfig
	Meeting  MeetingConfig
	State    StateConfig
	Log      LogConfig
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AudioConfig struct {
	RecorderCommand string
	PlayerCommand   string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// CaptionsEnabled reports whether live captions can be streamed.
func (c DeepgramConfig) CaptionsEnabled() bool {
	return c.APIKey != ""
}

type MeetingConfig struct {
	ReachOutURL string
}

type StateConfig struct {
	Path string
}

type LogConfig struct {
	Level string
}

type fileConfig struct {
	Backend struct {
		BaseURL   string `toml:"base_url"`
		TimeoutMS int    `toml:"timeout_ms"`
	} `toml:"backend"`
	Audio struct {
		RecorderCommand string `toml:"recorder_command"`
		PlayerCommand   string `toml:"player_command"`
		InputFormat     string `toml:"input_format"`
		InputDevice     string `toml:"input_device"`
		SampleRate      int    `toml:"sample_rate"`
		Channels        int    `toml:"channels"`
	} `toml:"audio"`
	Deepgram struct {
		APIKey   string `toml:"api_key"`
		Model    string `toml:"model"`
		Language string `toml:"language"`
	} `toml:"deepgram"`
	Meeting struct {
		ReachOutURL string `toml:"reach_out_url"`
	} `toml:"meeting"`
	LogLevel string `toml:"log_level"`
}

// Load resolves configuration from defaults, the optional config file and
// environment variables, in that order of precedence (last wins).
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 60 * time.Second,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			PlayerCommand:   "ffplay",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      16000,
			Channels:        1,
			ChunkSize:       4096,
		},
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			SmartFormat: true,
		},
		Meeting: MeetingConfig{ReachOutURL: DefaultReachOutURL},
		State:   StateConfig{Path: defaultStatePath(home)},
		Log:     LogConfig{Level: "info"},
	}

	if path := configFilePath(home); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 60 * time.Second
	}
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	cfg.Backend.BaseURL = firstNonEmpty(fc.Backend.BaseURL, cfg.Backend.BaseURL)
	if fc.Backend.TimeoutMS > 0 {
		cfg.Backend.Timeout = time.Duration(fc.Backend.TimeoutMS) * time.Millisecond
	}
	cfg.Audio.RecorderCommand = firstNonEmpty(fc.Audio.RecorderCommand, cfg.Audio.RecorderCommand)
	cfg.Audio.PlayerCommand = firstNonEmpty(fc.Audio.PlayerCommand, cfg.Audio.PlayerCommand)
	cfg.Audio.InputFormat = firstNonEmpty(fc.Audio.InputFormat, cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = firstNonEmpty(fc.Audio.InputDevice, cfg.Audio.InputDevice)
	if fc.Audio.SampleRate > 0 {
		cfg.Audio.SampleRate = fc.Audio.SampleRate
	}
	if fc.Audio.Channels > 0 {
		cfg.Audio.Channels = fc.Audio.Channels
	}
	cfg.Deepgram.APIKey = firstNonEmpty(fc.Deepgram.APIKey, cfg.Deepgram.APIKey)
	cfg.Deepgram.Model = firstNonEmpty(fc.Deepgram.Model, cfg.Deepgram.Model)
	cfg.Deepgram.Language = firstNonEmpty(fc.Deepgram.Language, cfg.Deepgram.Language)
	cfg.Meeting.ReachOutURL = firstNonEmpty(fc.Meeting.ReachOutURL, cfg.Meeting.ReachOutURL)
	cfg.Log.Level = firstNonEmpty(fc.LogLevel, cfg.Log.Level)
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Backend.BaseURL = envOrDefault("HEROHIRE_BACKEND_URL", cfg.Backend.BaseURL)
	if ms := envOrDefaultInt("HEROHIRE_HTTP_TIMEOUT_MS", 0); ms > 0 {
		cfg.Backend.Timeout = time.Duration(ms) * time.Millisecond
	}

	cfg.Audio.RecorderCommand = envOrDefault("HEROHIRE_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.PlayerCommand = envOrDefault("HEROHIRE_FFPLAY_COMMAND", cfg.Audio.PlayerCommand)
	cfg.Audio.InputFormat = envOrDefault("HEROHIRE_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOrDefault("HEROHIRE_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.SampleRate = envOrDefaultInt("HEROHIRE_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("HEROHIRE_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.ChunkSize = envOrDefaultInt("HEROHIRE_AUDIO_CHUNK_SIZE", cfg.Audio.ChunkSize)

	cfg.Deepgram.APIKey = envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.Language = envOrDefault("DEEPGRAM_LANGUAGE", cfg.Deepgram.Language)
	cfg.Deepgram.SmartFormat = envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)

	cfg.Meeting.ReachOutURL = envOrDefault("HEROHIRE_REACH_OUT_URL", cfg.Meeting.ReachOutURL)
	cfg.State.Path = envOrDefault("HEROHIRE_STATE_FILE", cfg.State.Path)
	cfg.Log.Level = envOrDefault("HEROHIRE_LOG_LEVEL", cfg.Log.Level)
}

func configFilePath(home string) string {
	if explicit := strings.TrimSpace(os.Getenv("HEROHIRE_CONFIG_FILE")); explicit != "" {
		return explicit
	}

	configDir := filepath.Join(home, ".config", "herohire")
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		configDir = filepath.Join(xdg, "herohire")
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func defaultStatePath(home string) string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "herohire", "state.toml")
	}
	return filepath.Join(home, ".local", "state", "herohire", "state.toml")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
