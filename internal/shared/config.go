package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Merge       MergeConfig       `toml:"merge"`
	PageNumbers PageNumbersConfig `toml:"page_numbers"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// MergeConfig contains settings for the remote merge endpoint and the saved result.
type MergeConfig struct {
	BaseURL        string `toml:"base_url"`
	Endpoint       string `toml:"endpoint"`
	FieldName      string `toml:"field_name"`
	OutputName     string `toml:"output_name"`
	OutputDir      string `toml:"output_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	AcceptNonPDF   bool   `toml:"accept_non_pdf"`
	OpenAfterSave  bool   `toml:"open_after_save"`
}

// Timeout returns the request timeout, zero meaning no timeout.
func (m MergeConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// URL joins the base URL and endpoint path.
func (m MergeConfig) URL() string {
	return strings.TrimRight(m.BaseURL, "/") + "/" + strings.TrimLeft(m.Endpoint, "/")
}

// PageNumbersConfig contains the optional page numbering request sent with a merge.
type PageNumbersConfig struct {
	Enabled        bool   `toml:"enabled"`
	StartingPageNo int    `toml:"starting_page_no"`
	Position       string `toml:"position"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local merge service.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes returns the request body limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `toml:"level"`
	TUIFile string `toml:"tui_file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Merge.BaseURL == "" {
		return fmt.Errorf("%w: merge.base_url is required", ErrInvalidConfig)
	}
	if c.Merge.FieldName == "" {
		return fmt.Errorf("%w: merge.field_name is required", ErrInvalidConfig)
	}
	if c.Merge.OutputName == "" {
		return fmt.Errorf("%w: merge.output_name is required", ErrInvalidConfig)
	}
	if c.PageNumbers.Enabled && c.PageNumbers.StartingPageNo < 1 {
		return fmt.Errorf("%w: page_numbers.starting_page_no must be at least 1", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
