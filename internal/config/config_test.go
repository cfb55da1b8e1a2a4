package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.ListenAddr() != "127.0.0.1:37791" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
	if cfg.Storage.MaxRecords != 1000 {
		t.Errorf("MaxRecords = %d", cfg.Storage.MaxRecords)
	}
	if cfg.Ingest.ConfidenceFloor != 0.5 {
		t.Errorf("ConfidenceFloor = %f", cfg.Ingest.ConfidenceFloor)
	}
	if cfg.AttachTimeout() != 30*time.Second {
		t.Errorf("AttachTimeout = %v", cfg.AttachTimeout())
	}
	if cfg.AnnounceCooldown() != 60*time.Second {
		t.Errorf("AnnounceCooldown = %v", cfg.AnnounceCooldown())
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	content := `
server:
  port: 9999
storage:
  max_records: 50
ingest:
  confidence_floor: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Storage.MaxRecords != 50 {
		t.Errorf("MaxRecords = %d", cfg.Storage.MaxRecords)
	}
	if cfg.Ingest.ConfidenceFloor != 0.7 {
		t.Errorf("ConfidenceFloor = %f", cfg.Ingest.ConfidenceFloor)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q", cfg.Server.Bind)
	}
	if cfg.Ingest.CheckpointEvery != 10 {
		t.Errorf("CheckpointEvery = %d", cfg.Ingest.CheckpointEvery)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 37791 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	os.WriteFile(path, []byte("server: [not a map"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("want error for malformed config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RECALL_API_KEY", "env-key")
	t.Setenv("RECALL_DATA_DIR", "/srv/recall")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vision.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Vision.APIKey)
	}
	if cfg.Storage.Dir != "/srv/recall" {
		t.Errorf("Dir = %q", cfg.Storage.Dir)
	}
}
