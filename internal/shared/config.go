package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API        APIConfig        `toml:"api"`
	Upload     UploadConfig     `toml:"upload"`
	Validation ValidationConfig `toml:"validation"`
	Polling    PollingConfig    `toml:"polling"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
}

// APIConfig contains the backend endpoint and credential storage settings.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TokenPath      string `toml:"token_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// UploadConfig contains chunked upload tuning.
type UploadConfig struct {
	ChunkSize           int64 `toml:"chunk_size"`
	MaxConcurrentChunks int   `toml:"max_concurrent_chunks"`
	RetryAttempts       int   `toml:"retry_attempts"`
	RetryDelayMS        int   `toml:"retry_delay_ms"`
}

// ValidationConfig mirrors the video pre-flight rule set.
type ValidationConfig struct {
	MaxFileSize    int64    `toml:"max_file_size"`
	MinDuration    float64  `toml:"min_duration"`
	MaxDuration    float64  `toml:"max_duration"`
	AllowedFormats []string `toml:"allowed_formats"`
	AllowedCodecs  []string `toml:"allowed_codecs"`
	MaxResolution  string   `toml:"max_resolution"`
	FFProbePath    string   `toml:"ffprobe_path"`
}

// PollingConfig contains status polling intervals in milliseconds.
type PollingConfig struct {
	UploadIntervalMS int `toml:"upload_interval_ms"`
	JobIntervalMS    int `toml:"job_interval_ms"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the local status server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// RetryDelay returns the base retry delay as a [time.Duration].
func (u UploadConfig) RetryDelay() time.Duration {
	return time.Duration(u.RetryDelayMS) * time.Millisecond
}

// UploadInterval returns the upload status polling interval.
func (p PollingConfig) UploadInterval() time.Duration {
	return time.Duration(p.UploadIntervalMS) * time.Millisecond
}

// JobInterval returns the transcoding job polling interval.
func (p PollingConfig) JobInterval() time.Duration {
	return time.Duration(p.JobIntervalMS) * time.Millisecond
}

// Timeout returns the API request timeout; zero means no timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Addr returns host:port for the status server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the upload pipeline cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	case c.Upload.ChunkSize <= 0:
		return fmt.Errorf("%w: upload.chunk_size must be positive", ErrInvalidConfig)
	case c.Upload.MaxConcurrentChunks <= 0:
		return fmt.Errorf("%w: upload.max_concurrent_chunks must be positive", ErrInvalidConfig)
	case c.Upload.RetryAttempts <= 0:
		return fmt.Errorf("%w: upload.retry_attempts must be positive", ErrInvalidConfig)
	case c.Upload.RetryDelayMS < 0:
		return fmt.Errorf("%w: upload.retry_delay_ms cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
