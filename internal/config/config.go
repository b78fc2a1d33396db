package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures credentials, API client tuning, collection defaults and analysis knobs.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	API         APIConfig         `yaml:"api"`
	Collection  CollectionConfig  `yaml:"collection"`
	Authors     AuthorsConfig     `yaml:"authors"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type CredentialsConfig struct {
	// X/Twitter API bearer token. If empty, read from env X_BEARER_TOKEN
	BearerToken string `yaml:"bearerToken"`
}

type APIConfig struct {
	// http, sdk or mock
	Mode    string `yaml:"mode"`
	BaseURL string `yaml:"baseURL"`
	// Requests per second and burst for the client-side limiter
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// 1 disables automatic retries
	MaxAttempts    int `yaml:"maxAttempts"`
	BaseBackoffMS  int `yaml:"baseBackoffMs"`
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

type CollectionConfig struct {
	Count        int    `yaml:"count"`
	SaveResult   bool   `yaml:"saveResult"`
	SaveDir      string `yaml:"saveDir"`
	ShowProgress bool   `yaml:"showProgress"`
}

type AuthorsConfig struct {
	// How long to sleep after a rate-limited lookup, e.g. "15m"
	RateLimitWait string `yaml:"rateLimitWait"`
	// Author info list written by the authors command
	OutputFile string `yaml:"outputFile"`
}

type AnalysisConfig struct {
	TopN           int      `yaml:"topN"`
	Bins           int      `yaml:"bins"`
	ExtraStopwords []string `yaml:"extraStopwords"`
	ReportFile     string   `yaml:"reportFile"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			Mode:           "http",
			BaseURL:        "https://api.twitter.com/2",
			RPS:            2,
			Burst:          10,
			MaxAttempts:    1,
			BaseBackoffMS:  500,
			TimeoutSeconds: 15,
		},
		Collection: CollectionConfig{Count: 100, SaveResult: true, ShowProgress: true},
		Authors:    AuthorsConfig{RateLimitWait: "15m", OutputFile: "author_info_list.json"},
		Analysis:   AnalysisConfig{TopN: 10, Bins: 10, ReportFile: "report.html"},
		Storage:    StorageConfig{DBPath: "./tweetminer.db"},
	}
}

// Wait parses RateLimitWait, falling back to 15 minutes.
func (a AuthorsConfig) Wait() time.Duration {
	if d, err := time.ParseDuration(a.RateLimitWait); err == nil && d > 0 {
		return d
	}
	return 15 * time.Minute
}

// LoadDotEnv loads a .env file if one exists; a missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ResolveEnv fills in config fields from environment variables.
func (c *Config) ResolveEnv() {
	if c.Credentials.BearerToken == "" {
		c.Credentials.BearerToken = os.Getenv("X_BEARER_TOKEN")
	}
	if v := os.Getenv("TWEETMINER_MODE"); v != "" {
		c.API.Mode = v
	}
	if v := os.Getenv("X_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.API.RPS = f
		}
	}
	c.API.Burst = envInt("X_API_BURST", c.API.Burst)
	c.API.MaxAttempts = envInt("X_API_MAX_ATTEMPTS", c.API.MaxAttempts)
	c.API.BaseBackoffMS = envInt("X_API_BASE_BACKOFF_MS", c.API.BaseBackoffMS)
	if v := os.Getenv("METRICS_ADDR"); v != "" && c.Metrics.Addr == "" {
		c.Metrics.Addr = v
	}
}

// Load reads YAML config from path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.ResolveEnv()
		return cfg, nil
	}
	return cfg, err
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
