package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  corsAllowedOrigins: ["http://localhost:3000"]
model:
  provider: gemini
  name: gemini-1.5-flash
store:
  driver: redis
redis:
  addr: localhost:6379
  ttl: 24h
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MODEL_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Fatalf("expected default port, got %q", cfg.Server.Port)
	}
	if cfg.Model.APIKey != "from-env" {
		t.Fatalf("expected api key from env, got %q", cfg.Model.APIKey)
	}
	if cfg.Generation.MaxDocumentChars != DefaultMaxDocumentChars {
		t.Fatalf("expected default document budget, got %d", cfg.Generation.MaxDocumentChars)
	}
	if cfg.Store.Driver != "redis" || cfg.Archive.Driver != "none" {
		t.Fatalf("unexpected drivers store=%q archive=%q", cfg.Store.Driver, cfg.Archive.Driver)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 1 {
		t.Fatalf("expected one allowed origin, got %v", cfg.Server.CORSAllowedOrigins)
	}
}

func TestLoadCORSFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  mode: prod\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 2 || cfg.Server.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("unexpected origins %v", cfg.Server.CORSAllowedOrigins)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDuration(t *testing.T) {
	if d := Duration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %v", d)
	}
	if d := Duration("bogus", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback for invalid, got %v", d)
	}
	if d := Duration("90s", time.Minute); d != 90*time.Second {
		t.Fatalf("expected 90s, got %v", d)
	}
}
