package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all recall configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Vision  VisionConfig  `yaml:"vision"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
	// ReloadOnQuery re-reads the on-disk index before each query. Enable
	// when a separate ingestion process shares the same data directory.
	ReloadOnQuery bool `yaml:"reload_on_query"`
}

type StorageConfig struct {
	// Dir is the data directory; resolved to ~/.recall when empty.
	Dir        string `yaml:"dir"`
	MaxRecords int    `yaml:"max_records"`
}

type VisionConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type IngestConfig struct {
	ConfidenceFloor   float64  `yaml:"confidence_floor"`
	CheckpointEvery   int      `yaml:"checkpoint_every"`
	AttachTimeoutSecs int      `yaml:"attach_timeout_seconds"`
	AnnounceEnabled   bool     `yaml:"announce_enabled"`
	AnnounceObjects   []string `yaml:"announce_objects"`
	AnnounceCooldown  int      `yaml:"announce_cooldown_seconds"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37791,
		},
		Storage: StorageConfig{
			MaxRecords: 1000,
		},
		Vision: VisionConfig{
			Model: "gemini-2.0-flash",
		},
		Ingest: IngestConfig{
			ConfidenceFloor:   0.5,
			CheckpointEvery:   10,
			AttachTimeoutSecs: 30,
			AnnounceObjects:   []string{"keys", "wallet", "phone", "glasses"},
			AnnounceCooldown:  60,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file falls
// back to defaults; a present but malformed file is an error. The
// RECALL_API_KEY and RECALL_DATA_DIR environment variables override both.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if key := os.Getenv("RECALL_API_KEY"); key != "" {
		cfg.Vision.APIKey = key
	}
	if dir := os.Getenv("RECALL_DATA_DIR"); dir != "" {
		cfg.Storage.Dir = dir
	}
	return cfg
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// AttachTimeout returns the attach timeout as a duration.
func (c *Config) AttachTimeout() time.Duration {
	return time.Duration(c.Ingest.AttachTimeoutSecs) * time.Second
}

// AnnounceCooldown returns the announcement cooldown as a duration.
func (c *Config) AnnounceCooldown() time.Duration {
	return time.Duration(c.Ingest.AnnounceCooldown) * time.Second
}
