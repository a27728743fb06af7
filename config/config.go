package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port int `yaml:"port"`
}

type SourceConfig struct {
	BaseURL          string `yaml:"base_url"`
	UserAgent        string `yaml:"user_agent"`
	TimeoutStr       string `yaml:"timeout"`
	DetailRatePerSec int    `yaml:"detail_rate_per_sec"`

	Timeout time.Duration `yaml:"-"` // parsed from TimeoutStr
}

type CacheConfig struct {
	Dir          string `yaml:"dir"`
	FreshnessStr string `yaml:"freshness"`

	Freshness time.Duration `yaml:"-"` // parsed from FreshnessStr
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Source SourceConfig `yaml:"source"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

const (
	defaultPort      = 8000
	defaultTimeout   = 30 * time.Second
	defaultFreshness = 24 * time.Hour
	defaultCacheDir  = "data/snapshots"
	defaultBaseURL   = "https://carianmygapmyorganic.doa.gov.my/"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// Load reads the YAML config file, layers .env / environment overrides on
// top, parses duration fields and ensures the cache directory exists.
func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables win over the file either way.
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Source.TimeoutStr != "" {
		cfg.Source.Timeout, err = time.ParseDuration(cfg.Source.TimeoutStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse source timeout %q: %w", cfg.Source.TimeoutStr, err)
		}
	}
	if cfg.Cache.FreshnessStr != "" {
		cfg.Cache.Freshness, err = time.ParseDuration(cfg.Cache.FreshnessStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse cache freshness %q: %w", cfg.Cache.FreshnessStr, err)
		}
	}

	if err := os.MkdirAll(cfg.Cache.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cfg.Cache.Dir, err)
	}

	return &cfg, nil
}

// FindConfigFile probes the usual locations relative to the working
// directory and returns the first config file that exists.
func FindConfigFile() (string, error) {
	candidates := []string{
		"config/config.yaml",
		"config.yaml",
		filepath.Join("..", "config", "config.yaml"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("config.yaml not found in standard locations")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MYGAP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MYGAP_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("MYGAP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = defaultBaseURL
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = defaultUserAgent
	}
	if cfg.Source.Timeout == 0 && cfg.Source.TimeoutStr == "" {
		cfg.Source.Timeout = defaultTimeout
	}
	if cfg.Source.DetailRatePerSec == 0 {
		cfg.Source.DetailRatePerSec = 2
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = defaultCacheDir
	}
	if cfg.Cache.Freshness == 0 && cfg.Cache.FreshnessStr == "" {
		cfg.Cache.Freshness = defaultFreshness
	}
}
