package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the per-directory configuration file name
const FileName = ".permitdesk.toml"

// BackendDirEnv overrides backend.dir when set
const BackendDirEnv = "PERMITDESK_BACKEND_DIR"

// Config represents the application configuration
type Config struct {
	Version int             `toml:"version"`
	Backend BackendSettings `toml:"backend"`
	API     APISettings     `toml:"api"`
	Search  SearchSettings  `toml:"search"`
	Panel   PanelSettings   `toml:"panel"`
	Log     LogSettings     `toml:"log"`
}

// BackendSettings describes how the backend process is located and launched
type BackendSettings struct {
	Dir            string   `toml:"dir"`
	Executable     string   `toml:"executable"` // relative to Dir
	Entry          string   `toml:"entry"`      // relative to Dir
	Args           []string `toml:"args"`
	ReadyMarker    string   `toml:"ready_marker"`
	StartupTimeout string   `toml:"startup_timeout"`
}

// APISettings describes the local HTTP API exposed by the backend
type APISettings struct {
	Origin         string `toml:"origin"`
	RequestTimeout string `toml:"request_timeout"` // empty means no client timeout
}

// SearchSettings holds search UI defaults
type SearchSettings struct {
	Radius string `toml:"radius"`
}

// PanelSettings configures the browser panel
type PanelSettings struct {
	AssetDir    string `toml:"asset_dir"`
	Listen      string `toml:"listen"`
	OpenBrowser bool   `toml:"open_browser"`
}

// LogSettings configures the log file
type LogSettings struct {
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, string, error)
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
}

// configService is the concrete implementation
type configService struct {
	candidates []string
}

// NewConfigService creates a config service that searches the working
// directory first and then the user config directory
func NewConfigService() ConfigService {
	candidates := []string{FileName}
	if configDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(configDir, "permitdesk", "config.toml"))
	}
	return &configService{candidates: candidates}
}

// NewConfigServiceWithPaths creates a config service with an explicit search list
func NewConfigServiceWithPaths(paths ...string) ConfigService {
	return &configService{candidates: paths}
}

// Load loads the first configuration file found. It returns the defaults and
// an empty path when none exists.
func (cs *configService) Load() (*Config, string, error) {
	for _, path := range cs.candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := cs.LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, "", nil
}

// LoadFromPath loads configuration from a specific path
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so partial files only override what they set
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv(BackendDirEnv); dir != "" {
		c.Backend.Dir = dir
	}
}

// Validate checks values that cannot be checked by the TOML decoder
func (c *Config) Validate() error {
	if _, err := parseDuration(c.Backend.StartupTimeout); err != nil {
		return fmt.Errorf("backend.startup_timeout: %w", err)
	}
	if c.Backend.ReadyMarker == "" {
		return errors.New("backend.ready_marker must not be empty")
	}
	if _, err := parseDuration(c.API.RequestTimeout); err != nil {
		return fmt.Errorf("api.request_timeout: %w", err)
	}
	u, err := url.Parse(c.API.Origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.origin must be an absolute URL, got %q", c.API.Origin)
	}
	if _, err := strconv.ParseFloat(c.Search.Radius, 64); err != nil {
		return fmt.Errorf("search.radius must be a number, got %q", c.Search.Radius)
	}
	return nil
}

// StartupTimeout returns the parsed backend startup timeout
func (c *Config) StartupTimeout() time.Duration {
	d, err := parseDuration(c.Backend.StartupTimeout)
	if err != nil || d <= 0 {
		return DefaultStartupTimeout
	}
	return d
}

// RequestTimeout returns the parsed API request timeout; zero means none
func (c *Config) RequestTimeout() time.Duration {
	d, _ := parseDuration(c.API.RequestTimeout)
	return d
}

// BackendDir returns the backend directory as an absolute path when possible
func (c *Config) BackendDir() string {
	if c.Backend.Dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(c.Backend.Dir); err == nil {
		return abs
	}
	return c.Backend.Dir
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Defaults
const (
	DefaultStartupTimeout = 5 * time.Second
	DefaultReadyMarker    = "Application startup complete"
	DefaultOrigin         = "http://127.0.0.1:8000"
	DefaultRadius         = "1.0"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Backend: BackendSettings{
			Dir:            "backend",
			Executable:     filepath.Join(".venv", "bin", "python"),
			Entry:          "main.py",
			Args:           []string{"-m", "uvicorn", "main:app", "--reload", "--port", "8000"},
			ReadyMarker:    DefaultReadyMarker,
			StartupTimeout: DefaultStartupTimeout.String(),
		},
		API: APISettings{
			Origin: DefaultOrigin,
		},
		Search: SearchSettings{
			Radius: DefaultRadius,
		},
		Panel: PanelSettings{
			AssetDir:    filepath.Join("webview", "dist"),
			Listen:      "127.0.0.1:0",
			OpenBrowser: true,
		},
		Log: LogSettings{
			File:       "permitdesk.log",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
