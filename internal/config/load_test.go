package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Timeout != 10*time.Second || cfg.Server.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected durations %+v %+v", cfg.API, cfg.Server)
	}
	client := cfg.Client()
	if client.Breaker.MaxFailures != defaultCircuitBreakerMaxFailures || client.Retries != defaultRetries {
		t.Fatalf("unexpected client config %+v", client)
	}
	if got := cfg.Logger(); got.Level != "info" || got.Format != "console" {
		t.Fatalf("unexpected logger config %+v", got)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hitas.yaml")
	body := `
api:
  base_url: https://hitas.example.fi/api/v1
  token: from-file
  circuit_breaker:
    max_failures: 2
log:
  level: debug
  format: json
forms:
  dir: ./forms
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HITAS_API_TOKEN", "from-env")
	t.Setenv("HITAS_SERVER_READ_TIMEOUT", "2s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := APIConfig{
		BaseURL: "https://hitas.example.fi/api/v1",
		Token:   "from-env",
		Timeout: 10 * time.Second,
		Retries: defaultRetries,
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:   2,
			Timeout:       30 * time.Second,
			HalfOpenLimit: defaultCircuitBreakerHalfOpen,
		},
	}
	if diff := cmp.Diff(want, cfg.API); diff != "" {
		t.Fatalf("api config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.ReadTimeout != 2*time.Second {
		t.Fatalf("expected env override of read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Log.Level != "debug" || cfg.Forms.Dir != "./forms" {
		t.Fatalf("unexpected file values %+v %+v", cfg.Log, cfg.Forms)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HITAS_LOG_FORMAT", "xml")
	t.Setenv("HITAS_API_BASE_URL", "not a url")

	_, err := Load("")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"must be an absolute URL", "must be a valid value"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
