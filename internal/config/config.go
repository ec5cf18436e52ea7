// Package config loads the gateway configuration: an optional YAML file
// with environment variables layered on top, env winning. The result is
// handed to the core as a plain struct at construction time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jenkmcp/jenkmcp/internal/tlspolicy"
	"github.com/jenkmcp/jenkmcp/internal/tool"
)

// Config holds the full gateway configuration.
type Config struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	APIToken string `yaml:"api_token"`
	Password string `yaml:"password"`

	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	RateLimit      float64 `yaml:"rate_limit"` // requests/second, 0 = unlimited

	SSL   SSLConfig   `yaml:"ssl"`
	Audit AuditConfig `yaml:"audit"`
	Tiers TierConfig  `yaml:"tiers"`
}

// SSLConfig mirrors tlspolicy.RawFlags in file/env form.
type SSLConfig struct {
	Verify            bool   `yaml:"verify"`
	AllowSelfSigned   bool   `yaml:"allow_self_signed"`
	BypassAll         bool   `yaml:"bypass_all"`
	CAPath            string `yaml:"ca_path"`
	CAContent         string `yaml:"ca_content"`
	ClientCertPath    string `yaml:"client_cert_path"`
	ClientCertContent string `yaml:"client_cert_content"`
	ClientKeyPath     string `yaml:"client_key_path"`
	ClientKeyContent  string `yaml:"client_key_content"`
	Debug             bool   `yaml:"debug"`
}

// AuditConfig controls the audit log location.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// TierConfig controls which tool safety tiers are enabled.
type TierConfig struct {
	Read      bool `yaml:"read"`
	Build     bool `yaml:"build"`
	Write     bool `yaml:"write"`
	Dangerous bool `yaml:"dangerous"`
}

// DefaultConfig returns the default configuration: SSL verification on,
// destructive tools off.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		TimeoutSeconds: 30,
		MaxRetries:     3,
		SSL:            SSLConfig{Verify: true},
		Audit: AuditConfig{
			Path: filepath.Join(home, ".local", "share", "jenkmcp", "audit.jsonl"),
		},
		Tiers: TierConfig{
			Read:      true,
			Build:     true,
			Write:     true,
			Dangerous: false,
		},
	}
}

// Load reads the config file from the standard location
// (~/.config/jenkmcp/config.yaml) and applies environment overrides.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFrom(filepath.Join(home, ".config", "jenkmcp", "config.yaml"))
}

// LoadFrom reads the config from the given path. A missing file is not
// an error; environment variables still apply.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults + env only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers JENKINS_*/JENKMCP_* environment variables over the
// loaded values.
func (c *Config) applyEnv() {
	envString(&c.URL, "JENKINS_URL")
	envString(&c.Username, "JENKINS_USERNAME")
	envString(&c.APIToken, "JENKINS_API_TOKEN")
	envString(&c.Password, "JENKINS_PASSWORD")
	envInt(&c.TimeoutSeconds, "JENKINS_TIMEOUT")
	envInt(&c.MaxRetries, "JENKINS_MAX_RETRIES")
	envFloat(&c.RateLimit, "JENKINS_RATE_LIMIT")

	envBool(&c.SSL.Verify, "JENKINS_SSL_VERIFY")
	envBool(&c.SSL.AllowSelfSigned, "JENKINS_SSL_ALLOW_SELF_SIGNED")
	envBool(&c.SSL.BypassAll, "JENKINS_SSL_BYPASS_ALL")
	envString(&c.SSL.CAPath, "JENKINS_SSL_CA_PATH")
	envString(&c.SSL.CAContent, "JENKINS_SSL_CA_CONTENT")
	envString(&c.SSL.ClientCertPath, "JENKINS_SSL_CLIENT_CERT_PATH")
	envString(&c.SSL.ClientCertContent, "JENKINS_SSL_CLIENT_CERT_CONTENT")
	envString(&c.SSL.ClientKeyPath, "JENKINS_SSL_CLIENT_KEY_PATH")
	envString(&c.SSL.ClientKeyContent, "JENKINS_SSL_CLIENT_KEY_CONTENT")
	envBool(&c.SSL.Debug, "JENKINS_SSL_DEBUG")

	envString(&c.Audit.Path, "JENKMCP_AUDIT_PATH")
	envBool(&c.Tiers.Dangerous, "JENKMCP_ALLOW_DANGEROUS")
}

// RawFlags converts the SSL settings for the policy resolver.
func (c *Config) RawFlags() tlspolicy.RawFlags {
	return tlspolicy.RawFlags{
		Verify:            c.SSL.Verify,
		AllowSelfSigned:   c.SSL.AllowSelfSigned,
		BypassAll:         c.SSL.BypassAll,
		CAPath:            c.SSL.CAPath,
		CAContent:         c.SSL.CAContent,
		ClientCertPath:    c.SSL.ClientCertPath,
		ClientCertContent: c.SSL.ClientCertContent,
		ClientKeyPath:     c.SSL.ClientKeyPath,
		ClientKeyContent:  c.SSL.ClientKeyContent,
		Debug:             c.SSL.Debug,
	}
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ApplyTiers pushes the configured tier switches onto the registry.
func (c *Config) ApplyTiers(reg *tool.Registry) {
	reg.SetTier(tool.TierRead, c.Tiers.Read)
	reg.SetTier(tool.TierBuild, c.Tiers.Build)
	reg.SetTier(tool.TierWrite, c.Tiers.Write)
	reg.SetTier(tool.TierDangerous, c.Tiers.Dangerous)
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
