package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Version int           `toml:"version"`
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Mock    MockConfig    `toml:"mock"`
	Chart   ChartConfig   `toml:"chart"`
	Probe   ProbeConfig   `toml:"probe"`
	Report  ReportConfig  `toml:"report"`
	Email   EmailConfig   `toml:"email"`
	Tray    TrayConfig    `toml:"tray"`
}

type ServerConfig struct {
	Addr        string `toml:"addr"`
	OpenBrowser bool   `toml:"open_browser"`
	Debug       bool   `toml:"debug"`
}

type StorageConfig struct {
	DBPath    string `toml:"db_path"`    // empty means <DataDir>/xdash.db
	ImportDir string `toml:"import_dir"` // empty means <DataDir>/import
}

type MockConfig struct {
	FeaturedAccount  string `toml:"featured_account"`
	DefaultRangeDays int    `toml:"default_range_days"`
	Seed             int64  `toml:"seed"` // 0 seeds from the clock
}

type ChartConfig struct {
	Format string `toml:"format"` // "png" or "svg"
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type ProbeConfig struct {
	Timeout  Duration `toml:"timeout"`
	Schedule string   `toml:"schedule"`
}

type ReportConfig struct {
	OutputDir      string `toml:"output_dir"` // empty means <CacheDir>/reports
	WeeklySchedule string `toml:"weekly_schedule"`
	Timezone       string `toml:"timezone"`
}

type EmailConfig struct {
	Provider string `toml:"provider"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.ToAddr != ""
}

type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

// Duration is a time.Duration that reads and writes as "5s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:        "127.0.0.1:8484",
			OpenBrowser: false,
		},
		Mock: MockConfig{
			FeaturedAccount:  "account_1",
			DefaultRangeDays: 30,
		},
		Chart: ChartConfig{
			Format: "png",
			Width:  720,
			Height: 320,
		},
		Probe: ProbeConfig{
			Timeout:  Duration{5 * time.Second},
			Schedule: "@every 30m",
		},
		Report: ReportConfig{
			WeeklySchedule: "0 9 * * 1",
			Timezone:       "Asia/Tokyo",
		},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "xdash"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir holds the durable state database. It lives next to the config file.
func DataDir() (string, error) {
	return ConfigDir()
}

// CacheDir returns the platform-appropriate cache directory.
// On macOS this is ~/Library/Caches/xdash/
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "xdash"), nil
}

// DBPath resolves the sqlite file location.
func (c *Config) DBPath() (string, error) {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "xdash.db"), nil
}

// ImportDir resolves the directory watched for legacy JSON dumps.
func (c *Config) ImportDir() (string, error) {
	if c.Storage.ImportDir != "" {
		return c.Storage.ImportDir, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "import"), nil
}

// ReportDir resolves the directory exported reports are written to.
func (c *Config) ReportDir() (string, error) {
	if c.Report.OutputDir != "" {
		return c.Report.OutputDir, nil
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "reports"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadOrCreate loads the config file, writing the defaults on first run.
// Any other read error falls back to the defaults without touching disk.
func LoadOrCreate() *Config {
	cfg, err := Load()
	if err == nil {
		return cfg
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] could not load config: %v (using defaults)", err)
		cfg = Default()
		cfg.ApplyEnv()
		return cfg
	}

	cfg = Default()
	if err := cfg.Save(); err != nil {
		log.Printf("[config] could not save default config: %v", err)
	} else {
		path, _ := ConfigPath()
		log.Printf("[config] created default config at %s", path)
	}
	cfg.ApplyEnv()
	return cfg
}

// LoadFile reads config from a specific path and applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv loads .env from the working directory (if any) and applies
// XDASH_* overrides on top of the file values.
func (c *Config) ApplyEnv() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] ignoring .env: %v", err)
	}
	if v := os.Getenv("XDASH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("XDASH_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("XDASH_SMTP_PASS"); v != "" {
		c.Email.SMTPPass = v
	}
}

// Save writes config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to the given path, creating parent directories.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
