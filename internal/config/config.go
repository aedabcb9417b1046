package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Port           int     `yaml:"port"`
		APIKey         string  `yaml:"api_key"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"http"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	GHL struct {
		Enabled         bool   `yaml:"enabled"`
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		LocationID      string `yaml:"location_id"`
		APIVersion      string `yaml:"api_version"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"ghl"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Studio struct {
		Timezone          string `yaml:"timezone"`
		ArtistsConfigPath string `yaml:"artists_config_path"`
	} `yaml:"studio"`

	Settings struct {
		CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	} `yaml:"settings"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if _, err = cfg.Location(); err != nil {
		return nil, fmt.Errorf("studio.timezone: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/studio.db"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RateLimitRPS <= 0 {
		c.HTTP.RateLimitRPS = 20
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 40
	}
	if c.Studio.ArtistsConfigPath == "" {
		c.Studio.ArtistsConfigPath = "configs/artists.yaml"
	}
	if c.GHL.BaseURL == "" {
		c.GHL.BaseURL = "https://services.leadconnectorhq.com"
	}
	if c.GHL.APIVersion == "" {
		c.GHL.APIVersion = "2021-04-15"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Location returns the studio wall-clock zone. Dates are interpreted in it without conversion.
func (c *Config) Location() (*time.Location, error) {
	if c.Studio.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Studio.Timezone)
}

func (c *Config) SettingsCacheTTL() time.Duration {
	if c.Settings.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Settings.CacheTTLSeconds) * time.Second
}

func (c *Config) GHLCacheTTL() time.Duration {
	if c.GHL.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.GHL.CacheTTLSeconds) * time.Second
}
