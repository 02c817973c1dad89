package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ligustah/gdown/internal/progress"
)

// ErrInvalid marks a config file or environment value that cannot be loaded.
var ErrInvalid = errors.New("invalid configuration")

// MaxBufferSize caps the read buffer allocated for a download.
const MaxBufferSize = 64 << 20

// Auth modes.
const (
	AuthServiceAccount = "service_account"
	AuthToken          = "token"
)

// Config defines configuration for the gdown CLI.
type Config struct {
	FileID          string        `yaml:"file_id"`
	AuthMode        string        `yaml:"auth_mode"`
	CredentialsFile string        `yaml:"credentials_file"`
	CredentialsEnv  string        `yaml:"credentials_env"`
	TokenEnv        string        `yaml:"token_env"`
	Scopes          []string      `yaml:"scopes"`
	APIBase         string        `yaml:"api_base"`
	DownloadDir     string        `yaml:"download_dir"`
	Bucket          string        `yaml:"bucket"`
	BufferSize      int64         `yaml:"buffer_size"`
	Timeout         time.Duration `yaml:"timeout"`
	Progress        bool          `yaml:"progress"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		AuthMode:        AuthServiceAccount,
		CredentialsFile: "credentials.json",
		CredentialsEnv:  "GDOWN_CREDENTIALS_JSON",
		TokenEnv:        "GDOWN_ACCESS_TOKEN",
		Scopes: []string{
			"https://www.googleapis.com/auth/drive.metadata.readonly",
			"https://www.googleapis.com/auth/drive.readonly",
		},
		APIBase:     "https://www.googleapis.com/drive/v3/files",
		DownloadDir: "downloads",
		BufferSize:  256 * 1024,
		Progress:    true,
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	FileID          string   `yaml:"file_id"`
	AuthMode        string   `yaml:"auth_mode"`
	CredentialsFile string   `yaml:"credentials_file"`
	CredentialsEnv  string   `yaml:"credentials_env"`
	TokenEnv        string   `yaml:"token_env"`
	Scopes          []string `yaml:"scopes"`
	APIBase         string   `yaml:"api_base"`
	DownloadDir     string   `yaml:"download_dir"`
	Bucket          string   `yaml:"bucket"`
	BufferSize      string   `yaml:"buffer_size"`
	Timeout         string   `yaml:"timeout"`
	Progress        *bool    `yaml:"progress"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config file: %w", ErrInvalid, err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("%w: parse config file: %w", ErrInvalid, err)
	}

	cfg := Default()

	if yc.FileID != "" {
		cfg.FileID = yc.FileID
	}
	if yc.AuthMode != "" {
		cfg.AuthMode = yc.AuthMode
	}
	if yc.CredentialsFile != "" {
		cfg.CredentialsFile = yc.CredentialsFile
	}
	if yc.CredentialsEnv != "" {
		cfg.CredentialsEnv = yc.CredentialsEnv
	}
	if yc.TokenEnv != "" {
		cfg.TokenEnv = yc.TokenEnv
	}
	if len(yc.Scopes) > 0 {
		cfg.Scopes = yc.Scopes
	}
	if yc.APIBase != "" {
		cfg.APIBase = yc.APIBase
	}
	if yc.DownloadDir != "" {
		cfg.DownloadDir = yc.DownloadDir
	}
	if yc.Bucket != "" {
		cfg.Bucket = yc.Bucket
	}
	if yc.BufferSize != "" {
		size, err := progress.ParseBytes(yc.BufferSize)
		if err != nil {
			return Config{}, fmt.Errorf("%w: parse buffer_size: %w", ErrInvalid, err)
		}
		cfg.BufferSize = size
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("%w: parse timeout: %w", ErrInvalid, err)
		}
		cfg.Timeout = d
	}
	if yc.Progress != nil {
		cfg.Progress = *yc.Progress
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the GDOWN_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("GDOWN_FILE_ID"); v != "" {
		c.FileID = v
	}
	if v := os.Getenv("GDOWN_AUTH_MODE"); v != "" {
		c.AuthMode = v
	}
	if v := os.Getenv("GDOWN_CREDENTIALS_FILE"); v != "" {
		c.CredentialsFile = v
	}
	if v := os.Getenv("GDOWN_TOKEN_ENV"); v != "" {
		c.TokenEnv = v
	}
	if v := os.Getenv("GDOWN_SCOPES"); v != "" {
		c.Scopes = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	if v := os.Getenv("GDOWN_API_BASE"); v != "" {
		c.APIBase = v
	}
	if v := os.Getenv("GDOWN_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("GDOWN_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("GDOWN_BUFFER_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("%w: parse GDOWN_BUFFER_SIZE: %w", ErrInvalid, err)
		}
		c.BufferSize = size
	}
	if v := os.Getenv("GDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: parse GDOWN_TIMEOUT: %w", ErrInvalid, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("GDOWN_PROGRESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: parse GDOWN_PROGRESS: %w", ErrInvalid, err)
		}
		c.Progress = b
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.FileID == "" {
		return errors.New("config: file id is required")
	}
	if err := c.ValidateAuth(); err != nil {
		return err
	}
	if c.APIBase == "" {
		return errors.New("config: api_base is required")
	}
	if c.DownloadDir == "" {
		return errors.New("config: download_dir is required")
	}
	if c.BufferSize <= 0 {
		return errors.New("config: buffer_size must be positive")
	}
	if c.BufferSize > MaxBufferSize {
		return errors.New("config: buffer_size must be at most 64 MiB")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	return nil
}

// ValidateAuth validates only the credential settings.
func (c *Config) ValidateAuth() error {
	switch c.AuthMode {
	case AuthServiceAccount:
		if c.CredentialsFile == "" && c.CredentialsEnv == "" {
			return errors.New("config: credentials_file is required in service_account mode")
		}
		if len(c.Scopes) == 0 {
			return errors.New("config: at least one scope is required")
		}
	case AuthToken:
		if c.TokenEnv == "" {
			return errors.New("config: token_env is required in token mode")
		}
	default:
		return fmt.Errorf("config: unknown auth_mode %q", c.AuthMode)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored. Progress is not merged; flags
// switch it off directly.
func (c Config) Merge(override Config) Config {
	if override.FileID != "" {
		c.FileID = override.FileID
	}
	if override.AuthMode != "" {
		c.AuthMode = override.AuthMode
	}
	if override.CredentialsFile != "" {
		c.CredentialsFile = override.CredentialsFile
	}
	if override.CredentialsEnv != "" {
		c.CredentialsEnv = override.CredentialsEnv
	}
	if override.TokenEnv != "" {
		c.TokenEnv = override.TokenEnv
	}
	if len(override.Scopes) > 0 {
		c.Scopes = override.Scopes
	}
	if override.APIBase != "" {
		c.APIBase = override.APIBase
	}
	if override.DownloadDir != "" {
		c.DownloadDir = override.DownloadDir
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
	}
	if override.BufferSize != 0 {
		c.BufferSize = override.BufferSize
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	return c
}
