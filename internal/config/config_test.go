package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8750 {
		t.Errorf("port = %d, want 8750", cfg.Server.Port)
	}
	if cfg.Fetch.StartDate != "2019-11-01" {
		t.Errorf("start date = %q", cfg.Fetch.StartDate)
	}
	if cfg.Build.TopItems != 75 || cfg.Build.TopPairs != 50 {
		t.Errorf("build limits = %+v", cfg.Build)
	}
	if got := cfg.ListenAddr(); got != "127.0.0.1:8750" {
		t.Errorf("ListenAddr = %q", got)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deckrec.yaml")
	data := []byte("server:\n  port: 9000\nfetch:\n  base_url: http://localhost:8080\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Fetch.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.Fetch.BaseURL)
	}
	// Untouched keys keep defaults.
	if cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("bind = %q", cfg.Server.Bind)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DECKREC_SERVER_PORT", "9100")
	t.Setenv("DECKREC_FETCH_START_DATE", "2021-06-01")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Fetch.StartDate != "2021-06-01" {
		t.Errorf("start date = %q, want 2021-06-01", cfg.Fetch.StartDate)
	}
}

func TestEnvTransform(t *testing.T) {
	cases := map[string]string{
		"DECKREC_SERVER_PORT":    "server.port",
		"DECKREC_FETCH_BASE_URL": "fetch.base_url",
		"DECKREC_LOG_LEVEL":      "log.level",
	}
	for in, want := range cases {
		if got := envTransform(in); got != want {
			t.Errorf("envTransform(%s) = %q, want %q", in, got, want)
		}
	}
}
