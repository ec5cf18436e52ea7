package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.SSL.Verify {
		t.Error("SSL verification must default on")
	}
	if cfg.Tiers.Dangerous {
		t.Error("dangerous tier must default off")
	}
	if cfg.TimeoutSeconds != 30 || cfg.MaxRetries != 3 {
		t.Errorf("timeout/retries = %d/%d, want 30/3", cfg.TimeoutSeconds, cfg.MaxRetries)
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not be an error: %v", err)
	}
	if !cfg.SSL.Verify {
		t.Error("defaults not applied")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
url: https://jenkins.internal
username: ci-bot
api_token: tok123
max_retries: 5
ssl:
  verify: true
  ca_path: /etc/ssl/jenkins-ca.pem
tiers:
  dangerous: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.URL != "https://jenkins.internal" || cfg.Username != "ci-bot" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if !cfg.Tiers.Dangerous {
		t.Error("tiers.dangerous not read from file")
	}
	if got := cfg.RawFlags().CAPath; got != "/etc/ssl/jenkins-ca.pem" {
		t.Errorf("RawFlags().CAPath = %q", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("url: https://from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JENKINS_URL", "https://from-env")
	t.Setenv("JENKINS_API_TOKEN", "envtok")
	t.Setenv("JENKINS_SSL_VERIFY", "false")
	t.Setenv("JENKINS_TIMEOUT", "60")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.URL != "https://from-env" {
		t.Errorf("URL = %q, env must win", cfg.URL)
	}
	if cfg.APIToken != "envtok" {
		t.Errorf("APIToken = %q", cfg.APIToken)
	}
	if cfg.SSL.Verify {
		t.Error("JENKINS_SSL_VERIFY=false not applied")
	}
	if cfg.Timeout().Seconds() != 60 {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout())
	}
}
