package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Upload.ChunkSize != 5*1024*1024 {
			t.Errorf("expected chunk size 5 MiB, got %d", config.Upload.ChunkSize)
		}
		if config.Upload.MaxConcurrentChunks != 3 {
			t.Errorf("expected 3 concurrent chunks, got %d", config.Upload.MaxConcurrentChunks)
		}
		if config.Upload.RetryDelay() != time.Second {
			t.Errorf("expected retry delay 1s, got %v", config.Upload.RetryDelay())
		}
		if config.Polling.UploadInterval() != 2*time.Second {
			t.Errorf("expected upload poll 2s, got %v", config.Polling.UploadInterval())
		}
		if config.Polling.JobInterval() != 3*time.Second {
			t.Errorf("expected job poll 3s, got %v", config.Polling.JobInterval())
		}
		if config.Validation.MaxResolution != "1920x1080" {
			t.Errorf("expected max resolution 1920x1080, got %s", config.Validation.MaxResolution)
		}
		if len(config.Validation.AllowedFormats) != 4 {
			t.Errorf("expected 4 allowed formats, got %v", config.Validation.AllowedFormats)
		}
		if config.Server.Addr() != "127.0.0.1:4680" {
			t.Errorf("unexpected server address %s", config.Server.Addr())
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nested", "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.API.BaseURL != DefaultConfig().API.BaseURL {
			t.Errorf("created config base url doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[api]
base_url = "https://reels.example.com/api"

[upload]
chunk_size = 1048576
max_concurrent_chunks = 5
retry_attempts = 4
retry_delay_ms = 250

[log]
level = "debug"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://reels.example.com/api" {
			t.Errorf("unexpected base url %s", config.API.BaseURL)
		}
		if config.Upload.MaxConcurrentChunks != 5 || config.Upload.RetryAttempts != 4 {
			t.Errorf("upload section not applied: %+v", config.Upload)
		}
		if config.Upload.RetryDelay() != 250*time.Millisecond {
			t.Errorf("expected 250ms retry delay, got %v", config.Upload.RetryDelay())
		}
		if config.Log.Level != "debug" {
			t.Errorf("expected debug level, got %s", config.Log.Level)
		}
		if config.Polling.JobIntervalMS != 3000 {
			t.Errorf("missing sections should keep defaults, got job interval %d", config.Polling.JobIntervalMS)
		}
	})

	t.Run("LoadConfig rejects invalid values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[upload]\nmax_concurrent_chunks = 0\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ExpandHome", func(t *testing.T) {
		if got := ExpandHome("./reels.db"); got != "./reels.db" {
			t.Errorf("relative paths should be unchanged, got %s", got)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		if got := ExpandHome("~/.reels/token.json"); got != filepath.Join(home, ".reels", "token.json") {
			t.Errorf("unexpected expansion %s", got)
		}
	})
}
