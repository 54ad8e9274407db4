package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "reelget"

	DefaultPort       = 3000
	DefaultPythonBin  = ".venv/bin/python"
	DefaultLogLevel   = "info"
	DefaultListenHost = ""
)

// Environment variables that override the config file
const (
	EnvPort          = "PORT"
	EnvPython        = "REELGET_PYTHON"
	EnvLogLevel      = "LOG_LEVEL"
	EnvMaxConcurrent = "REELGET_MAX_CONCURRENT"
)

// DefaultExtractorArgs runs yt-dlp as a python module.
var DefaultExtractorArgs = []string{"-m", "yt_dlp"}

// ConfigDir returns the standard config directory for reelget.
// Windows: %APPDATA%\reelget\
// macOS/Linux: ~/.config/reelget/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/reelget/config.yml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level,omitempty"`

	// Server configuration for `reelget serve`
	Server ServerConfig `yaml:"server,omitempty"`

	// Extractor describes how to invoke yt-dlp
	Extractor ExtractorConfig `yaml:"extractor,omitempty"`
}

// ServerConfig holds HTTP server settings for `reelget serve`
type ServerConfig struct {
	// Host is the listen address (default: all interfaces)
	Host string `yaml:"host,omitempty"`

	// Port is the HTTP listen port (default: 3000)
	Port int `yaml:"port,omitempty"`

	// MaxConcurrent bounds the number of extractor subprocesses (0 = unlimited)
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`

	// CancelOnDisconnect kills the extractor when the client goes away
	CancelOnDisconnect bool `yaml:"cancel_on_disconnect,omitempty"`
}

// ExtractorConfig holds the yt-dlp invocation
type ExtractorConfig struct {
	// Python is the interpreter that has yt_dlp installed
	Python string `yaml:"python,omitempty"`

	// Args precede the yt-dlp options (default: -m yt_dlp)
	Args []string `yaml:"args,omitempty"`
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Server: ServerConfig{
			Host: DefaultListenHost,
			Port: DefaultPort,
		},
		Extractor: ExtractorConfig{
			Python: DefaultPythonBin,
			Args:   append([]string(nil), DefaultExtractorArgs...),
		},
	}
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/reelget/config.yml
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path and fills missing values with defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	cfg.Extractor.Python = expandPath(cfg.Extractor.Python)

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Server.Port <= 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MaxConcurrent < 0 {
		c.Server.MaxConcurrent = 0
	}
	if c.Extractor.Python == "" {
		c.Extractor.Python = DefaultPythonBin
	}
	if len(c.Extractor.Args) == 0 {
		c.Extractor.Args = append([]string(nil), DefaultExtractorArgs...)
	}
}

// ApplyEnv overrides config values from the environment.
// Invalid numeric values are reported and leave the field untouched.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid %s %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxConcurrent)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s %q", EnvMaxConcurrent, v)
		}
		c.Server.MaxConcurrent = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvPython)); v != "" {
		c.Extractor.Python = expandPath(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// It handles both forward and backward slashes to ensure cross-platform compatibility
// for configuration files.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to ~/.config/reelget/config.yml
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveFile(configPath, cfg)
}

// SaveFile writes cfg to path, creating parent directories
func SaveFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# reelget configuration file\n# Run 'reelget init' to regenerate with defaults\n\n"
	return os.WriteFile(path, []byte(header+string(data)), 0644)
}

// Init creates a new config.yml with default values
func Init() error {
	if Exists() {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}

// Resolve builds the runtime config: .env is loaded into the environment,
// then the config file at path (or the default location) is read, then
// environment variables override it. An explicit path must exist.
func Resolve(path string) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	var cfg *Config
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	} else {
		cfg = LoadOrDefault()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config if it exists, otherwise returns defaults
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
	}
	return cfg
}
