package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all pagebuilder configuration.
type Config struct {
	// Root for the database and the default visual config file
	DataDir string `yaml:"data_dir"`

	Database DatabaseConfig `yaml:"database"`
	Editor   EditorConfig   `yaml:"editor"`
	Media    MediaConfig    `yaml:"media"`
	History  HistoryConfig  `yaml:"history"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Server   ServerConfig   `yaml:"server"`
	Publish  PublishConfig  `yaml:"publish"`
	Logging  LoggingConfig  `yaml:"logging"`

	// External settings file imported into the config key on write; empty disables.
	VisualConfigPath string `yaml:"visual_config_path"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // defaults to <data_dir>/pagebuilder.db
}

// EditorConfig sizes the interactive session.
type EditorConfig struct {
	ViewportWidth  float64 `yaml:"viewport_width"`
	ViewportHeight float64 `yaml:"viewport_height"`
	MinSize        float64 `yaml:"min_size"`
	HandleSize     float64 `yaml:"handle_size"`
	StartPage      string  `yaml:"start_page"`
}

type MediaConfig struct {
	MaxAssets     int `yaml:"max_assets"` // 0 = unbounded
	DecodeWorkers int `yaml:"decode_workers"`
}

type HistoryConfig struct {
	MaxNodes int `yaml:"max_nodes"`
}

// AutosaveConfig schedules periodic snapshots of the active page.
type AutosaveConfig struct {
	Schedule string `yaml:"schedule"` // cron spec, e.g. "@every 30s"; empty disables
}

type CheckoutConfig struct {
	BaseURL string `yaml:"base_url"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
	// Origins allowed to open the pointer websocket; empty allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// PublishConfig lists the external stores each deployed build is pushed to.
type PublishConfig struct {
	Sinks []SinkConfig `yaml:"sinks"`
}

// SinkConfig describes one publish target.
type SinkConfig struct {
	Name     string `yaml:"name"`
	Driver   string `yaml:"driver"` // sqlite, postgres, mysql, mongodb
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"` // file path for sqlite
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	// Table (SQL) or collection (MongoDB) receiving builds
	Table string `yaml:"table"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "pagebuilder")
	return &Config{
		DataDir: dataDir,
		Editor: EditorConfig{
			ViewportWidth:  1280,
			ViewportHeight: 800,
			MinSize:        1,
			HandleSize:     12,
			StartPage:      "home",
		},
		Media:    MediaConfig{DecodeWorkers: 4},
		History:  HistoryConfig{MaxNodes: 40},
		Checkout: CheckoutConfig{BaseURL: "https://checkout.example.com/buy"},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15,
			WriteTimeout: 15,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "pagebuilder", "config.yaml")
}

// Load reads a YAML file over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are skipped; variables already set win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if c.Editor.ViewportWidth <= 0 || c.Editor.ViewportHeight <= 0 {
		return fmt.Errorf("editor viewport must be positive, got %vx%v", c.Editor.ViewportWidth, c.Editor.ViewportHeight)
	}
	if c.Media.MaxAssets < 0 {
		return fmt.Errorf("media.max_assets must not be negative")
	}
	for i, s := range c.Publish.Sinks {
		switch s.Driver {
		case "sqlite", "postgres", "mysql", "mongodb":
		default:
			return fmt.Errorf("publish.sinks[%d]: unsupported driver %q", i, s.Driver)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.DataDir = getEnv("PAGEBUILDER_DATA_DIR", c.DataDir)
	c.Database.Path = getEnv("PAGEBUILDER_DB", c.Database.Path)
	c.Server.Addr = getEnv("PAGEBUILDER_ADDR", c.Server.Addr)
	c.Logging.Level = getEnv("PAGEBUILDER_LOG_LEVEL", c.Logging.Level)
	c.Checkout.BaseURL = getEnv("PAGEBUILDER_CHECKOUT_URL", c.Checkout.BaseURL)
	c.Autosave.Schedule = getEnv("PAGEBUILDER_AUTOSAVE", c.Autosave.Schedule)
	c.VisualConfigPath = getEnv("PAGEBUILDER_VISUAL_CONFIG", c.VisualConfigPath)
	c.Media.MaxAssets = getEnvAsInt("PAGEBUILDER_MAX_ASSETS", c.Media.MaxAssets)
	c.History.MaxNodes = getEnvAsInt("PAGEBUILDER_HISTORY_NODES", c.History.MaxNodes)
}

func (c *Config) fillDerived() {
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.DataDir, "pagebuilder.db")
	}
	if c.Editor.StartPage == "" {
		c.Editor.StartPage = "home"
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
