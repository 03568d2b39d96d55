package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HEROHIRE_CONFIG_FILE", "")
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8080" || cfg.Backend.Timeout != 60*time.Second {
		t.Fatalf("unexpected backend config: %+v", cfg.Backend)
	}
	if cfg.Audio.RecorderCommand != "ffmpeg" || cfg.Audio.PlayerCommand != "ffplay" {
		t.Fatalf("unexpected audio commands: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 || cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("unexpected audio format: %+v", cfg.Audio)
	}
	if cfg.Deepgram.CaptionsEnabled() {
		t.Fatalf("expected captions disabled without api key")
	}
	if cfg.Meeting.ReachOutURL != DefaultReachOutURL {
		t.Fatalf("unexpected reach out url: %q", cfg.Meeting.ReachOutURL)
	}
	want := filepath.Join(home, ".local", "state", "herohire", "state.toml")
	if cfg.State.Path != want {
		t.Fatalf("unexpected state path: %q", cfg.State.Path)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".config", "herohire", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	contents := `log_level = "debug"

[backend]
base_url = "https://api.example.com/"
timeout_ms = 1500

[audio]
input_format = "alsa"
sample_rate = 22050

[deepgram]
api_key = "file-key"

[meeting]
reach_out_url = "https://example.com/contact"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend.BaseURL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 1500*time.Millisecond {
		t.Fatalf("unexpected timeout: %s", cfg.Backend.Timeout)
	}
	if cfg.Audio.InputFormat != "alsa" || cfg.Audio.SampleRate != 22050 {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if !cfg.Deepgram.CaptionsEnabled() {
		t.Fatalf("expected captions enabled from file key")
	}
	if cfg.Meeting.ReachOutURL != "https://example.com/contact" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected meeting/log config: %+v %+v", cfg.Meeting, cfg.Log)
	}
}

func TestLoadInvalidConfigFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "broken.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("HEROHIRE_CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "c.toml")
	if err := os.WriteFile(path, []byte("[backend]\nbase_url = \"https://file\"\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("HEROHIRE_CONFIG_FILE", path)
	t.Setenv("HEROHIRE_BACKEND_URL", "https://env")
	t.Setenv("HEROHIRE_HTTP_TIMEOUT_MS", "250")
	t.Setenv("HEROHIRE_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("HEROHIRE_FFPLAY_COMMAND", "my-ffplay")
	t.Setenv("HEROHIRE_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("HEROHIRE_STATE_FILE", "/tmp/state.toml")
	t.Setenv("DEEPGRAM_API_KEY", "env-key")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend.BaseURL != "https://env" || cfg.Backend.Timeout != 250*time.Millisecond {
		t.Fatalf("unexpected backend config: %+v", cfg.Backend)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.PlayerCommand != "my-ffplay" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.State.Path != "/tmp/state.toml" {
		t.Fatalf("unexpected state path: %q", cfg.State.Path)
	}
	if cfg.Deepgram.APIKey != "env-key" || cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram config: %+v", cfg.Deepgram)
	}
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	isolate(t)
	t.Setenv("HEROHIRE_SAMPLE_RATE", "bad")
	t.Setenv("HEROHIRE_CHANNELS", "-1")
	t.Setenv("HEROHIRE_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("HEROHIRE_HTTP_TIMEOUT_MS", "bad")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "not-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Fatalf("expected default channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Audio.ChunkSize)
	}
	if cfg.Backend.Timeout != 60*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.Backend.Timeout)
	}
	if !cfg.Deepgram.SmartFormat {
		t.Fatalf("expected default smart format true")
	}
}

func TestDefaultStatePathHonorsXDG(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	if got := defaultStatePath("/home/u"); got != filepath.Join("/xdg/state", "herohire", "state.toml") {
		t.Fatalf("unexpected state path: %q", got)
	}
}
