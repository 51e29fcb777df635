package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/care")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr: got %q, want :8080", cfg.ListenAddr)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("model: got %q", cfg.OpenAI.Model)
	}
	if cfg.Agent.PollInterval.Std() != 30*time.Second {
		t.Errorf("poll interval: got %v, want 30s", cfg.Agent.PollInterval.Std())
	}
	if cfg.Agent.ClassifyTimeout.Std() != 15*time.Second {
		t.Errorf("classify timeout: got %v, want 15s", cfg.Agent.ClassifyTimeout.Std())
	}
	if cfg.Agent.CheckpointPath != ".last_prescription_scan" {
		t.Errorf("checkpoint path: got %q", cfg.Agent.CheckpointPath)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(""); err == nil {
		t.Error("load: got nil error without DATABASE_URL")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen_addr: ":9090"
database_url: "postgres://db/care"
openai:
  api_key: "sk-test"
  model: "gpt-4o"
agent:
  poll_interval: "45s"
  classify_timeout: "5s"
  checkpoint_path: "/var/lib/care/checkpoint"
notify:
  url: "https://hooks.example.com/doctor"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("listen addr: got %q", cfg.ListenAddr)
	}
	if cfg.Agent.PollInterval.Std() != 45*time.Second {
		t.Errorf("poll interval: got %v, want 45s", cfg.Agent.PollInterval.Std())
	}
	if cfg.Agent.ClassifyTimeout.Std() != 5*time.Second {
		t.Errorf("classify timeout: got %v, want 5s", cfg.Agent.ClassifyTimeout.Std())
	}
	if cfg.Notify.URL != "https://hooks.example.com/doctor" {
		t.Errorf("notify url: got %q", cfg.Notify.URL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`database_url: "postgres://file/db"`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("POLL_INTERVAL", "2m")
	t.Setenv("PORT", "3000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Errorf("database url: got %q, want env value", cfg.DatabaseURL)
	}
	if cfg.Agent.PollInterval.Std() != 2*time.Minute {
		t.Errorf("poll interval: got %v, want 2m", cfg.Agent.PollInterval.Std())
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("listen addr: got %q, want :3000", cfg.ListenAddr)
	}
}

func TestInvalidDurationRejected(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/care")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`agent: {poll_interval: "soon"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("load: got nil error for invalid duration")
	}
}
