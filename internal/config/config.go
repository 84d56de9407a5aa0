package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Ranking     RankingConfig     `yaml:"ranking"`
	Storage     StorageConfig     `yaml:"storage"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

type CredentialsConfig struct {
	// X/Twitter API bearer token. If empty, read from env X_BEARER_TOKEN
	BearerToken string `yaml:"bearerToken"`
}

type IngestConfig struct {
	// Recent-search query whose results feed the graph
	Query string `yaml:"query"`
	// Max messages fetched per run (10..100)
	Limit int `yaml:"limit"`
	// Loop interval, e.g. "15m"
	Interval string `yaml:"interval"`
}

type RankingConfig struct {
	// How many influencers to print or serve; 0 means all
	Top int `yaml:"top"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Ingest:  IngestConfig{Query: "golang -is:retweet", Limit: 100, Interval: "15m"},
		Ranking: RankingConfig{Top: 20},
		Storage: StorageConfig{DBPath: "./mentiongraph.db"},
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.BearerToken == "" {
		c.Credentials.BearerToken = os.Getenv("X_BEARER_TOKEN")
	}
	if v := os.Getenv("MENTIONGRAPH_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = os.Getenv("METRICS_ADDR")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Load reads YAML config from path. Missing fields keep their defaults.
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

// LoadOrDefault is Load, except a missing file yields Default with env applied.
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
