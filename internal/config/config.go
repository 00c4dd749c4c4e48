// Package config handles TOML-based configuration loading and validation.
// Precedence is defaults < config file < environment (including .env) < CLI flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Resolution strategies.
const (
	StrategyAuto   = "auto"
	StrategyAPI    = "api"
	StrategyScrape = "scrape"
)

// Environment variables read by Load.
const (
	EnvAccountToken = "GOFILE_ACCOUNT_TOKEN"
	EnvLogLevel     = "RECLINK_LOG_LEVEL"
)

// Duration wraps time.Duration so it can be written as "15s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText encodes the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all application configuration.
type Config struct {
	APIBase         string   `toml:"api_base"`
	UploadURL       string   `toml:"upload_url"`
	ShareHosts      []string `toml:"share_hosts"`
	AccountToken    string   `toml:"account_token"`
	Strategy        string   `toml:"strategy"`
	LookupTimeout   Duration `toml:"lookup_timeout"`
	TransferTimeout Duration `toml:"transfer_timeout"`
	PageTimeout     Duration `toml:"page_timeout"`
	History         bool     `toml:"history"`
	DownloadDir     string   `toml:"download_dir"`
	Player          string   `toml:"player"`
	Listen          string   `toml:"listen"`
	LogLevel        string   `toml:"log_level"`
	Debug           bool     `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		APIBase:         "https://api.gofile.io",
		UploadURL:       "https://{server}.gofile.io/uploadFile",
		ShareHosts:      []string{"gofile.io"},
		Strategy:        StrategyAuto,
		LookupTimeout:   Duration{15 * time.Second},
		TransferTimeout: Duration{60 * time.Second},
		PageTimeout:     Duration{20 * time.Second},
		History:         true,
		DownloadDir:     "~/Videos/reclink",
		Player:          "mpv",
		Listen:          "127.0.0.1:8080",
		LogLevel:        "info",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "reclink"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "reclink"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file, applies environment overrides and merges with
// defaults. A missing config file or .env file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	if path, err := ConfigPath(); err == nil {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAccountToken); v != "" {
		c.AccountToken = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validStrategies := map[string]bool{
		StrategyAuto: true, StrategyAPI: true, StrategyScrape: true,
	}
	if !validStrategies[strings.ToLower(c.Strategy)] {
		return fmt.Errorf("unsupported strategy %q (valid: auto, api, scrape)", c.Strategy)
	}
	if strings.EqualFold(c.Strategy, StrategyAPI) && c.AccountToken == "" {
		return fmt.Errorf("strategy %q requires an account token (%s)", StrategyAPI, EnvAccountToken)
	}

	validPlayers := map[string]bool{
		"mpv": true, "vlc": true, "iina": true, "celluloid": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}

	if c.APIBase == "" {
		return fmt.Errorf("api_base cannot be empty")
	}
	if u, err := url.Parse(c.APIBase); err != nil || u.Host == "" {
		return fmt.Errorf("api_base %q is not an absolute URL", c.APIBase)
	}
	if !strings.Contains(c.UploadURL, "{server}") {
		return fmt.Errorf("upload_url %q must contain the {server} placeholder", c.UploadURL)
	}

	for name, d := range map[string]Duration{
		"lookup_timeout":   c.LookupTimeout,
		"transfer_timeout": c.TransferTimeout,
		"page_timeout":     c.PageTimeout,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d.Duration)
		}
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	return nil
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	dir := c.DownloadDir
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// HistoryPath returns the path to the history database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "reclink", "history.db"), nil
}
