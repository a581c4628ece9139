// Package config merges CLI flags, an optional YAML file, and environment
// variables into one immutable models.Config, following the same
// decode-then-overlay idiom as the teacher's pkg/serializers package.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"reconforge/pkg/models"
)

// CLI is the subset of flags a caller (cmd/recon) has already parsed via
// kong. Loader overlays it onto YAML defaults and environment fallbacks.
type CLI struct {
	Domains      []string
	OutputDir    string
	Threads      int
	Wordlist     string
	PassiveOnly  bool
	Include      string
	Exclude      string
	Resume       bool
	ConfigFile   string
	WebhookURL   string
	Authorized   bool
	Strict       bool
	LogFile      string
	Verbose      bool
}

// Loader implements the ConfigLoader collaborator interface (spec.md §6).
type Loader struct {
	CLI CLI
}

// Load returns the merged CLI+YAML+env Config. CLI flags always win over
// YAML file values, which win over built-in Defaults(); environment
// variables are consulted only where the CLI left a field at its zero value.
func (l Loader) Load() (*models.Config, error) {
	cfg := models.Defaults()

	if l.CLI.ConfigFile != "" {
		if err := applyYAML(cfg, l.CLI.ConfigFile); err != nil {
			return nil, err
		}
	}

	applyCLI(cfg, l.CLI)
	applyEnv(cfg)

	return cfg, nil
}

func applyYAML(cfg *models.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyCLI(cfg *models.Config, c CLI) {
	if len(c.Domains) > 0 {
		cfg.Domains = c.Domains
	}
	if c.OutputDir != "" {
		cfg.OutputDir = c.OutputDir
	}
	if c.Threads > 0 {
		cfg.Threads = c.Threads
	}
	if c.Wordlist != "" {
		cfg.Wordlist = c.Wordlist
	}
	if c.PassiveOnly {
		cfg.PassiveOnly = true
	}
	if c.Include != "" {
		cfg.Include = c.Include
	}
	if c.Exclude != "" {
		cfg.Exclude = c.Exclude
	}
	cfg.Resume = c.Resume
	cfg.ConfigFile = c.ConfigFile
	if c.WebhookURL != "" {
		cfg.WebhookURL = c.WebhookURL
	}
	cfg.Authorized = c.Authorized
	if c.Strict {
		cfg.Strict = true
	}
	if c.LogFile != "" {
		cfg.LogFile = c.LogFile
	}
	if c.Verbose {
		cfg.Verbose = true
	}
}

// applyEnv fills in fields the CLI and YAML file both left unset, per
// spec.md §6's environment-variable fallback table.
func applyEnv(cfg *models.Config) {
	if len(cfg.Domains) == 0 {
		for _, name := range []string{"RECON_TARGET", "RECON_DOMAIN", "TARGET_DOMAIN"} {
			if v := os.Getenv(name); v != "" {
				cfg.Domains = []string{v}
				break
			}
		}
	}
	if cfg.WebhookURL == "" {
		cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
	}
	if v := os.Getenv("RECON_THREADS"); v != "" && cfg.Threads == models.Defaults().Threads {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Threads = n
		}
	}
}
